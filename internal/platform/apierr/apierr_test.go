package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusOfAndCodeOf(t *testing.T) {
	err := NotFound("artifact_not_found", fmt.Errorf("nope"))
	if StatusOf(err) != http.StatusNotFound {
		t.Fatalf("status: want=404 got=%d", StatusOf(err))
	}
	if CodeOf(err) != "artifact_not_found" {
		t.Fatalf("code: want=artifact_not_found got=%s", CodeOf(err))
	}
}

func TestStatusOfDefaultsToInternal(t *testing.T) {
	if StatusOf(fmt.Errorf("plain")) != http.StatusInternalServerError {
		t.Fatalf("plain errors should map to 500")
	}
}

func TestWrappedErrorsStillMatch(t *testing.T) {
	inner := Conflict("execution_not_running", fmt.Errorf("state"))
	wrapped := fmt.Errorf("stop failed: %w", inner)
	if !Is(wrapped, "execution_not_running") {
		t.Fatalf("Is should see through wrapping")
	}
	if StatusOf(wrapped) != http.StatusConflict {
		t.Fatalf("status: want=409 got=%d", StatusOf(wrapped))
	}
	if !errors.Is(wrapped, inner) {
		t.Fatalf("errors.Is should match the original error")
	}
}

func TestRemoteEngineAndStorageKinds(t *testing.T) {
	if CodeOf(RemoteEngine(fmt.Errorf("down"))) != "flink_cluster_error" {
		t.Fatalf("remote engine code mismatch")
	}
	if StatusOf(Storage(fmt.Errorf("down"))) != http.StatusBadGateway {
		t.Fatalf("storage errors should map to 502")
	}
}
