package main

import "github.com/jmehdipour/churn-predictor/cmd"

func main() {
	cmd.Execute()
}
