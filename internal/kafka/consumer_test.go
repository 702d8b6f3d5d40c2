package kafka

import (
	"errors"
	"testing"
	"time"
)

func TestDecodeTransaction(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
		anon    bool
	}{
		{name: "ok", value: `{"customer_id":13085,"invoice":"489434","invoice_date":"2009-12-01T07:45:00Z","quantity":12,"price":6.95,"country":"United Kingdom"}`},
		{name: "anonymous", value: `{"customer_id":null,"invoice":"489435","invoice_date":"2009-12-01T07:46:00+01:00","quantity":1,"price":1,"country":"France"}`, anon: true},
		{name: "not json", value: `{`, wantErr: true},
		{name: "no invoice", value: `{"customer_id":1,"invoice_date":"2009-12-01T07:45:00Z"}`, wantErr: true},
		{name: "no date", value: `{"customer_id":1,"invoice":"1"}`, wantErr: true},
		{name: "wrong type", value: `{"customer_id":"x","invoice":"1","invoice_date":"2009-12-01T07:45:00Z"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := DecodeTransaction(Message{Value: []byte(tt.value)})
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedEvent) {
					t.Fatalf("err = %v, want ErrMalformedEvent", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if (rec.CustomerID == nil) != tt.anon {
				t.Fatalf("customer id = %v", rec.CustomerID)
			}
			if rec.InvoiceDate.Location() != time.UTC {
				t.Fatalf("invoice date not UTC: %v", rec.InvoiceDate)
			}
		})
	}
}
