package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusNotFound, "Car not found")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	want := ErrorResponse{Error: "Not Found", Message: "Car not found", Code: 404}
	if body != want {
		t.Fatalf("expected %+v, got %+v", want, body)
	}
}

func TestDecode(t *testing.T) {
	var v struct{ Name string }
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"Name":"A4"}`))
	if err := Decode(r, &v); err != nil || v.Name != "A4" {
		t.Fatalf("unexpected decode %v %+v", err, v)
	}
	r = httptest.NewRequest("POST", "/", strings.NewReader(`{`))
	if err := Decode(r, &v); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestIntList(t *testing.T) {
	got, err := IntList(" 3, 1,2 ")
	if err != nil || !reflect.DeepEqual(got, []int{3, 1, 2}) {
		t.Fatalf("expected [3 1 2], got %v %v", got, err)
	}
	got, err = IntList("")
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty, got %v %v", got, err)
	}
	if _, err := IntList("1,x"); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
	if _, err := IntList("0"); err == nil {
		t.Fatal("expected error for zero id")
	}
}
