package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mediaops/trickplay-pipeline/internal/pipeline"
	"github.com/mediaops/trickplay-pipeline/internal/trickplay"
)

// invokePrefix matches the AWS Lambda invoke API path, so tooling written
// against a real Lambda endpoint works against the dev server unchanged.
const invokePrefix = "/2015-03-31/functions/"

// serve runs the local dev server until interrupted. Each POST to
// /2015-03-31/functions/{name}/invocations dispatches the request body as
// that stage's event.
func serve(ctx context.Context, p *pipeline.Pipeline, port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc(invokePrefix, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST only")
			return
		}
		name, ok := functionName(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, "expected "+invokePrefix+"{name}/invocations")
			return
		}
		invoke(w, r, p, name)
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", port).Msg("Dev server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down dev server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// functionName extracts {name} from /2015-03-31/functions/{name}/invocations.
func functionName(path string) (string, bool) {
	rest := strings.TrimPrefix(path, invokePrefix)
	name, action, found := strings.Cut(rest, "/")
	if !found || name == "" || action != "invocations" {
		return "", false
	}
	return name, true
}

// invoke dispatches one local invocation to the named stage.
func invoke(w http.ResponseWriter, r *http.Request, p *pipeline.Pipeline, name string) {
	requestID := "local-" + uuid.NewString()
	logger := log.With().Str("function", name).Str("requestId", requestID).Logger()
	logger.Info().Msg("Invoking function locally")

	dec := json.NewDecoder(r.Body)
	var result interface{}
	var err error

	switch name {
	case "generator":
		var detail trickplay.TranscodeCompleteDetail
		if decErr := dec.Decode(&detail); decErr != nil {
			writeError(w, http.StatusBadRequest, "malformed event detail: "+decErr.Error())
			return
		}
		result, err = p.HandleTranscodeComplete(r.Context(), detail, requestID)
	case "manifest":
		var msg trickplay.ManifestRequest
		if decErr := dec.Decode(&msg); decErr != nil {
			writeError(w, http.StatusBadRequest, "malformed message: "+decErr.Error())
			return
		}
		result, err = p.HandleManifestRequest(r.Context(), msg)
	case "invalidator":
		var msg trickplay.InvalidationMessage
		if decErr := dec.Decode(&msg); decErr != nil {
			writeError(w, http.StatusBadRequest, "malformed message: "+decErr.Error())
			return
		}
		result, err = p.HandleInvalidation(r.Context(), msg)
	default:
		writeError(w, http.StatusNotFound, "unknown function: "+name)
		return
	}

	if err != nil {
		logger.Error().Err(err).Msg("Local invocation failed")
		status := http.StatusInternalServerError
		if trickplay.IsClientError(err) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	logger.Info().Msg("Local invocation succeeded")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
