package config

import (
	"testing"
	"time"
)

func TestConfig(t *testing.T) {

	config, err := Load("config.example.yaml")
	if err != nil {
		t.Fatal(err)
	}

	if got, want := config.DatabasePath, "./salestracker.db"; got != want {
		t.Errorf("got %s want %s", got, want)
	}
	if got, want := config.Geocoder.Timeout, 10*time.Second; got != want {
		t.Errorf("geocoder timeout got %s want %s", got, want)
	}
	if got, want := config.Session.Lifetime, 12*time.Hour; got != want {
		t.Errorf("session lifetime got %s want %s", got, want)
	}
}

func TestConfigGeocoderKeyFromEnv(t *testing.T) {

	t.Setenv("GEOCODER_API_KEY", "env-secret")

	config, err := Load("config.example.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := config.Geocoder.APIKey, "env-secret"; got != want {
		t.Errorf("got %s want %s", got, want)
	}
}

func TestConfigMissing(t *testing.T) {
	_, err := Load("no-such-file.yaml")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}
