package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeString(t *testing.T) {
	tests := []struct {
		want string
		typ  Type
	}{
		{want: "DiscoveryStarted", typ: DiscoveryStarted},
		{want: "DirDiscovered", typ: DirDiscovered},
		{want: "DiscoveryComplete", typ: DiscoveryComplete},
		{want: "PairPlanned", typ: PairPlanned},
		{want: "PlanComplete", typ: PlanComplete},
		{want: "DirStarted", typ: DirStarted},
		{want: "DirCreated", typ: DirCreated},
		{want: "DirFailed", typ: DirFailed},
		{want: "DirSkipped", typ: DirSkipped},
		{want: "DirCompleted", typ: DirCompleted},
		{want: "FileCopied", typ: FileCopied},
		{want: "FileFailed", typ: FileFailed},
		{want: "FileSkipped", typ: FileSkipped},
		{want: "MigrationComplete", typ: MigrationComplete},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}

func TestTypeStringUnknown(t *testing.T) {
	assert.Equal(t, "Unknown", Type(999).String())
	assert.Equal(t, "Unknown", Type(0).String())
}

func TestEmitStampsTimestamp(t *testing.T) {
	var rec Recorder
	Emit(&rec, Event{Type: FileCopied, Src: "/a"})

	events := rec.Events()
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, "/a", events[0].Src)
}

func TestEmitNilSink(t *testing.T) {
	assert.NotPanics(t, func() {
		Emit(nil, Event{Type: FileCopied})
	})
}

func TestTee(t *testing.T) {
	var a, b Recorder
	s := Tee(&a, &b, Discard)
	s.Emit(Event{Type: FileFailed, Error: errors.New("boom")})

	require.Len(t, a.Events(), 1)
	require.Len(t, b.Events(), 1)
	assert.EqualError(t, b.Events()[0].Error, "boom")
}

func TestRecorderOfType(t *testing.T) {
	var rec Recorder
	rec.Emit(Event{Type: DirStarted})
	rec.Emit(Event{Type: FileCopied})
	rec.Emit(Event{Type: FileCopied})

	assert.Len(t, rec.OfType(FileCopied), 2)
	assert.Len(t, rec.OfType(DirStarted), 1)
	assert.Empty(t, rec.OfType(FileFailed))
}
