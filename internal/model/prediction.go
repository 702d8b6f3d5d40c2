package model

// ChurnInput is the serving-time feature vector. Recency is never an input.
type ChurnInput struct {
	Frequency int     `json:"Frequency"`
	Monetary  float64 `json:"Monetary"`
	Country   string  `json:"Country"`
}

// PredictionResponse is the body returned by POST /predict.
type PredictionResponse struct {
	Churn int `json:"CHURN"`
}
