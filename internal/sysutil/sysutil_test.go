package sysutil

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLogLevel_AllVariants(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"  DeBuG  ", zerolog.DebugLevel}, // case + trim
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel}, // empty -> info
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel}, // alias
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"unknown", zerolog.InfoLevel}, // default
	}

	for _, tc := range cases {
		SetLogLevel(tc.in)
		if got := zerolog.GlobalLevel(); got != tc.want {
			t.Fatalf("SetLogLevel(%q) -> %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestFlagParsing(t *testing.T) {
	trues := []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"}
	falses := []string{"0", "false", "NO", " off ", "n"}
	neither := []string{"", "  ", "random", "2", "enable"}

	for _, v := range trues {
		if !IsTruthy(v) || IsFalsy(v) {
			t.Fatalf("%q should be truthy only", v)
		}
	}
	for _, v := range falses {
		if IsTruthy(v) || !IsFalsy(v) {
			t.Fatalf("%q should be falsy only", v)
		}
	}
	for _, v := range neither {
		if IsTruthy(v) || IsFalsy(v) {
			t.Fatalf("%q should be neither truthy nor falsy", v)
		}
	}
}
