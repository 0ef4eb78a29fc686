package api

import (
	"encoding/xml"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReplyDocumentMarshalsVerbsInOrder(t *testing.T) {
	doc := twimlResponse{Verbs: []any{
		say("Your table is booked."),
		speechGather("/process-speech", "https://example.com/static/sounds/keyboard-typing.wav", ""),
		say("Thank you for calling Luigi's! Goodbye!"),
	}}

	out, err := xml.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal reply document: %v", err)
	}
	body := string(out)

	for _, want := range []string{
		"Your table is booked.",
		"Thank you for calling Luigi&#39;s! Goodbye!",
		"keyboard-typing.wav",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("reply document missing %q:\n%s", want, body)
		}
	}

	// Two Say verbs are siblings of the Gather and must keep their order:
	// reply first, then the Gather with its Play, then the goodbye.
	reply := strings.Index(body, "Your table is booked.")
	gather := strings.Index(body, "<Gather")
	play := strings.Index(body, "<Play>")
	goodbye := strings.Index(body, "Thank you for calling")
	if !(reply < gather && gather < play && play < goodbye) {
		t.Errorf("verbs out of order:\n%s", body)
	}

	if got := strings.Count(body, "<Say"); got != 2 {
		t.Errorf("expected 2 Say verbs, got %d:\n%s", got, body)
	}
}

func TestWriteTwiMLEncodeFailureReturns500(t *testing.T) {
	rec := httptest.NewRecorder()
	writeTwiML(rec, twimlResponse{Verbs: []any{make(chan int)}})

	if rec.Code != 500 {
		t.Fatalf("expected 500 on encode failure, got %d", rec.Code)
	}
	if body := rec.Body.String(); strings.Contains(body, "<?xml") {
		t.Errorf("partial xml written on encode failure:\n%s", body)
	}
}
