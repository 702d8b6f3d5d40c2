package churn

import (
	"errors"
	"math"
	"testing"

	"github.com/jmehdipour/churn-predictor/internal/model"
)

func TestMerge(t *testing.T) {
	parts := []Partition{
		{Name: "Year 2009-2010", Records: []model.TransactionRecord{rec(cid(1), "A", dayN(0), 1, 1, "UK")}},
		{Name: "empty"},
		{Name: "Year 2010-2011", Records: []model.TransactionRecord{
			rec(cid(2), "B", dayN(1), 1, 1, "France"),
			rec(cid(3), "C", dayN(2), 1, 1, "Spain"),
		}},
	}

	got := Merge(parts)
	if len(got) != 3 {
		t.Fatalf("merged rows: got %d, want 3", len(got))
	}
	if got[0].Invoice != "A" || got[2].Invoice != "C" {
		t.Errorf("merge order: got %s..%s, want A..C", got[0].Invoice, got[2].Invoice)
	}
}

func TestClean_Filters(t *testing.T) {
	records := []model.TransactionRecord{
		rec(nil, "I0", dayN(0), 5, 2.5, "UK"),                // anonymous
		rec(cid(math.NaN()), "I0", dayN(0), 5, 2.5, "UK"),    // NaN id from spreadsheet
		rec(cid(13085.0), "C1", dayN(0), -3, 2.5, "UK"),      // return
		rec(cid(13085.0), "I1", dayN(0), 0, 2.5, "UK"),       // zero quantity
		rec(cid(13085.0), "I2", dayN(0), 4, 0, "UK"),         // free line
		rec(cid(13085.0), "I3", dayN(0), 4, -11062.06, "UK"), // bad debt adjustment
		rec(cid(13085.0), "I4", dayN(0), 6, 2.55, "UK"),
	}

	got, rep, err := Clean(records)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	want := CleanReport{RawRows: 7, MissingCustomer: 2, NonPositiveQty: 2, NonPositivePrice: 2, Cleaned: 1}
	if rep != want {
		t.Errorf("report: got %+v, want %+v", rep, want)
	}
	if len(got) != 1 {
		t.Fatalf("cleaned rows: got %d, want 1", len(got))
	}
	if got[0].Invoice != "I4" {
		t.Errorf("survivor: got %s, want I4", got[0].Invoice)
	}
	if s := got[0].LineRevenue.String(); s != "15.3" {
		t.Errorf("line revenue: got %s, want 15.3", s)
	}
}

func TestClean_CoercesCustomerID(t *testing.T) {
	got, _, err := Clean([]model.TransactionRecord{
		rec(cid(13085.0), "I1", dayN(0), 1, 1, "UK"),
		rec(cid(17850.9999), "I2", dayN(0), 1, 1, "UK"),
	})
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if got[0].CustomerID != 13085 {
		t.Errorf("id 0: got %d, want 13085", got[0].CustomerID)
	}
	if got[1].CustomerID != 17850 {
		t.Errorf("id 1: got %d, want 17850", got[1].CustomerID)
	}
}

func TestClean_InfiniteCustomerID(t *testing.T) {
	_, _, err := Clean([]model.TransactionRecord{
		rec(cid(math.Inf(1)), "I1", dayN(0), 1, 1, "UK"),
	})
	if !errors.Is(err, ErrDataSourceCorrupt) {
		t.Errorf("got %v, want ErrDataSourceCorrupt", err)
	}
}

func TestClean_Empty(t *testing.T) {
	got, rep, err := Clean(nil)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if len(got) != 0 || rep.Cleaned != 0 {
		t.Errorf("expected empty result, got %d rows", len(got))
	}
}
