package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIdempotent(t *testing.T) {
	Register()
	Register() // second call must not panic
}

func TestIncStageAdvanced(t *testing.T) {
	before := testutil.ToFloat64(stageAdvanced.WithLabelValues("2"))
	IncStageAdvanced("2")
	if got := testutil.ToFloat64(stageAdvanced.WithLabelValues("2")); got != before+1 {
		t.Errorf("stage counter = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(stageAdvanced.WithLabelValues("3")); got != 0 {
		t.Errorf("other stage label incremented: %v", got)
	}
}

func TestIncReservationCounters(t *testing.T) {
	before := testutil.ToFloat64(reservationCreated.WithLabelValues("pending"))
	IncReservationCreated("pending")
	if got := testutil.ToFloat64(reservationCreated.WithLabelValues("pending")); got != before+1 {
		t.Errorf("created counter = %v, want %v", got, before+1)
	}

	beforeCancelled := testutil.ToFloat64(reservationCancelled)
	IncReservationCancelled()
	if got := testutil.ToFloat64(reservationCancelled); got != beforeCancelled+1 {
		t.Errorf("cancelled counter = %v, want %v", got, beforeCancelled+1)
	}
}
