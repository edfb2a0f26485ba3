package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestNewTelemetryCreateChildAndEnd(t *testing.T) {
	root := NewTelemetry(context.Background(), "root-span", attribute.String("room", "room-1"))
	if root == nil {
		t.Fatal("expected a non-nil Telemetry")
	}

	child := root.CreateChild("child-span")
	if child == nil {
		t.Fatal("expected a non-nil child Telemetry")
	}

	child.AddEvent("something happened", attribute.Int("count", 1))
	child.AddError(errors.New("boom"))
	child.Fail(errors.New("fatal"))

	child.End()
	root.End()
}
