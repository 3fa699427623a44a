package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		name                      string
		veryVerbose, debug, quiet bool
		want                      zerolog.Level
	}{
		{name: "Default", want: zerolog.InfoLevel},
		{name: "Debug", debug: true, want: zerolog.DebugLevel},
		{name: "Trace", veryVerbose: true, debug: true, want: zerolog.TraceLevel},
		{name: "Quiet", quiet: true, want: zerolog.WarnLevel},
		{name: "Quiet Wins", quiet: true, debug: true, want: zerolog.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Level(tt.veryVerbose, tt.debug, tt.quiet); got != tt.want {
				t.Errorf("Level() = %s, want %s", got, tt.want)
			}
		})
	}
}
