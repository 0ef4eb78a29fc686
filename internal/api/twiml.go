package api

import (
	"bytes"
	"encoding/xml"
	"log/slog"
	"net/http"
)

// pollyVoice is the Amazon Polly voice Twilio uses for all spoken
// prompts.
const pollyVoice = "Polly.Joanna"

// TwiML building blocks, marshalled with encoding/xml. Only the verbs
// this app speaks are modelled. Each verb carries its own XMLName so a
// <Response> can hold several of the same verb at one level.

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr"`
	Text    string   `xml:",chardata"`
}

type twimlPlay struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

type twimlGather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr"`
	Timeout       int      `xml:"timeout,attr"`
	SpeechTimeout string   `xml:"speechTimeout,attr"`

	// nil children are omitted from the output.
	Say  *twimlSay
	Play *twimlPlay
}

// twimlResponse is a <Response> document whose verbs render in slice
// order.
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

func say(text string) twimlSay {
	return twimlSay{Voice: pollyVoice, Text: text}
}

func speechGather(action, soundURL string, greeting string) twimlGather {
	g := twimlGather{
		Input:         "speech",
		Action:        action,
		Method:        http.MethodPost,
		Timeout:       3,
		SpeechTimeout: "auto",
	}
	if greeting != "" {
		s := say(greeting)
		g.Say = &s
	}
	if soundURL != "" {
		g.Play = &twimlPlay{URL: soundURL}
	}
	return g
}

// writeTwiML marshals a TwiML document as the webhook response. The
// document is encoded in full before any byte reaches the wire, so a
// marshal failure surfaces as a 500 instead of a truncated 200.
func writeTwiML(w http.ResponseWriter, doc twimlResponse) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "    ")
	if err := enc.Encode(doc); err != nil {
		slog.Error("failed to encode twiml", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed to write twiml response", "error", err)
	}
}
