package telemetry

import "testing"

func TestNewResourceRejectsEmptyNameOrID(t *testing.T) {
	if _, err := NewResource("", "host-1"); err == nil {
		t.Fatal("expected an error for an empty package name")
	}
	if _, err := NewResource("sfu-engine", ""); err == nil {
		t.Fatal("expected an error for an empty identifier")
	}
}

func TestNewResourceSucceeds(t *testing.T) {
	res, err := NewResource("sfu-engine", "host-1")
	if err != nil {
		t.Fatalf("NewResource: %v", err)
	}
	if res == nil {
		t.Fatal("expected a non-nil resource")
	}
}

func TestNewOTLPExporterRejectsEmptyHost(t *testing.T) {
	_, err := NewOTLPExporter(OTLP{Host: ""})
	if err == nil {
		t.Fatal("expected an error for an empty OTLP host")
	}
}

func TestNewOTLPExporterRejectsHostWithScheme(t *testing.T) {
	for _, host := range []string{"http://collector:4318", "https://collector:4318"} {
		if _, err := NewOTLPExporter(OTLP{Host: host}); err == nil {
			t.Fatalf("expected an error for a host carrying a scheme: %q", host)
		}
	}
}

func TestNewOTLPExporterRejectsTrailingSlash(t *testing.T) {
	_, err := NewOTLPExporter(OTLP{Host: "collector:4318/"})
	if err == nil {
		t.Fatal("expected an error for a host with a trailing slash")
	}
}

func TestNewOTLPExporterAcceptsBareHost(t *testing.T) {
	exp, err := NewOTLPExporter(OTLP{Host: "collector:4318", Secure: false})
	if err != nil {
		t.Fatalf("NewOTLPExporter: %v", err)
	}
	if exp == nil {
		t.Fatal("expected a non-nil exporter")
	}
}

func TestSetupTelemetryRequiresAnExporterTarget(t *testing.T) {
	_, err := SetupTelemetry(Config{Package: "sfu-engine", ID: "host-1"})
	if err == nil {
		t.Fatal("expected an error when neither OTLP host nor Jaeger URL is set")
	}
}
