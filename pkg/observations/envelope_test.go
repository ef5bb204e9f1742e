package observations

import (
	"errors"
	"testing"
)

func TestDecodePage(t *testing.T) {
	body := []byte(`{
		"total_results": 487,
		"page": 1,
		"per_page": 3,
		"results": [
			{"id": 101, "taxon": {"name": "a"}},
			{"id": 102, "taxon": {"name": "b"}},
			{"id": 105, "taxon": {"name": "c"}}
		]
	}`)

	page, total, err := DecodePage(body)
	if err != nil {
		t.Fatalf("DecodePage() error = %v", err)
	}

	if total != 487 {
		t.Errorf("total = %d, want 487", total)
	}
	if page.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", page.Len())
	}
	if page.MinID() != 101 || page.MaxID() != 105 {
		t.Errorf("MinID/MaxID = %d/%d, want 101/105", page.MinID(), page.MaxID())
	}
}

func TestDecodePage_EmptyResults(t *testing.T) {
	page, _, err := DecodePage([]byte(`{"total_results": 0, "results": []}`))
	if err != nil {
		t.Fatalf("DecodePage() error = %v", err)
	}
	if page.Len() != 0 {
		t.Errorf("Len() = %d, want 0", page.Len())
	}
}

func TestDecodePage_MissingResultsField(t *testing.T) {
	_, _, err := DecodePage([]byte(`{"total_results": 10}`))
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("error = %v, want ErrMalformedResponse", err)
	}
}

func TestDecodePage_InvalidJSON(t *testing.T) {
	_, _, err := DecodePage([]byte(`<html>not json</html>`))
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("error = %v, want ErrMalformedResponse", err)
	}
}

func TestDecodePage_RecordMissingID(t *testing.T) {
	body := []byte(`{"results": [{"id": 1}, {"taxon": {"name": "no id"}}]}`)

	_, _, err := DecodePage(body)
	if !errors.Is(err, ErrMissingID) {
		t.Errorf("error = %v, want ErrMissingID", err)
	}
}
