package httpstatus

import "testing"

func TestClassBuckets(t *testing.T) {
	cases := []struct {
		code Code
		want Class
	}{
		{100, Informational},
		{200, Success},
		{301, Redirection},
		{404, ClientError},
		{500, ServerError},
		{Unset, Unknown},
		{999, Unknown},
	}
	for _, c := range cases {
		if got := c.code.Class(); got != c.want {
			t.Errorf("Code(%d).Class() = %v, want %v", c.code, got, c.want)
		}
	}
}

func TestPredicatesMatchClass(t *testing.T) {
	if !OK.IsSuccess() || OK.IsClientError() {
		t.Fatal("OK should be a success code and nothing else")
	}
	if !InternalServerError.IsServerError() {
		t.Fatal("InternalServerError should be a server error")
	}
}

func TestReasonPhraseFallsBackForUnknownCode(t *testing.T) {
	if got := Code(299).ReasonPhrase(); got != "Unknown Status" {
		t.Fatalf("ReasonPhrase for an untabulated code = %q, want %q", got, "Unknown Status")
	}
	if got := OK.ReasonPhrase(); got != "OK" {
		t.Fatalf("ReasonPhrase(200) = %q, want OK", got)
	}
}

func TestStringRendersUnsetSpecially(t *testing.T) {
	if got := Unset.String(); got != "unset" {
		t.Fatalf("Unset.String() = %q, want %q", got, "unset")
	}
	if got := OK.String(); got != "200 OK" {
		t.Fatalf("OK.String() = %q, want %q", got, "200 OK")
	}
}
