package api

import (
	"github.com/presic/chunker/chunker"
	"github.com/presic/chunker/hmm"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
)

// Request serves ad-hoc tagging over HTTP: the POST body is plain
// text, one sentence per line with whitespace-separated tokens, and
// the response is the labeled sentences as JSON.
type Request struct {
	Chunker *chunker.Chunker
	Mode    hmm.Mode
}

func (req *Request) ProcessData(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	logger := makeRequestLogger(r)

	if r.Method != "POST" {
		logger.Err(nil).Int("status", http.StatusMethodNotAllowed).Msg("Only 'POST' method is allowed here")
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}

	msg, err := ioutil.ReadAll(r.Body)
	if err != nil {
		logger.Err(err).Int("status", http.StatusBadRequest).Msg("Could not read request body")
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	sentences, err := req.Chunker.TagText(string(msg), req.Mode)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, hmm.ErrNotReady) {
			status = http.StatusServiceUnavailable
		}
		logger.Err(err).Int("status", status).Msg("Tagging failed")
		http.Error(w, err.Error(), status)
		return
	}

	if err := json.NewEncoder(w).Encode(sentences); err != nil {
		logger.Err(err).Msg("Could not write response")
		return
	}
	logger.Info().Int("status", http.StatusOK).Int("sentences", len(sentences)).Msg("Finished processing request")
}
