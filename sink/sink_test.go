package sink_test

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cowin-slots/model"
	"cowin-slots/sink"

	"github.com/stretchr/testify/require"
)

var foundAt = time.Date(2026, 10, 16, 10, 30, 0, 0, time.Local)

func match(id string) model.Match {
	return model.Match{
		Slot: model.SlotRecord{
			SessionID:     id,
			Name:          "PHC " + id,
			Date:          "17-10-2026",
			Vaccine:       "COVAXIN",
			Fee:           "0",
			Pincode:       110001,
			Capacity:      10,
			CapacityDose1: 6,
			CapacityDose2: 4,
		},
		Dose:     model.Dose1,
		Capacity: 6,
	}
}

func TestJSONSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots-finder.json")
	s := sink.NewJSONSink(path)

	records, err := s.Load()
	require.NoError(t, err)
	require.Empty(t, records)

	const n = 5
	for i := 0; i < n; i++ {
		require.NoError(t, s.Write([]model.Match{match(fmt.Sprintf("s-%d", i))}, foundAt))
	}

	records, err = s.Load()
	require.NoError(t, err)
	require.Len(t, records, n)
	for i, r := range records {
		require.Equal(t, fmt.Sprintf("PHC s-%d", i), r.Name)
		require.NotEmpty(t, r.ID)
		require.Equal(t, model.FeeFree, r.Fee)
		require.Equal(t, 6, r.Dose1)
		require.Equal(t, "16-10-2026 10:30:00", r.BookingTime)
	}
}

func TestJSONSinkCumulativeAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots-finder.json")

	first := sink.NewJSONSink(path)
	require.NoError(t, first.Write([]model.Match{match("a"), match("b")}, foundAt))

	second := sink.NewJSONSink(path)
	require.NoError(t, second.Write([]model.Match{match("c")}, foundAt))

	records, err := second.Load()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "PHC a", records[0].Name)
	require.Equal(t, "PHC c", records[2].Name)
}

func TestJSONSinkRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots-finder.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := sink.NewJSONSink(path)
	require.Error(t, s.Write([]model.Match{match("a")}, foundAt))
}

func TestTextSinkAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots-finder.txt")
	s := sink.NewTextSink(path)

	require.NoError(t, s.Write([]model.Match{match("a")}, foundAt))
	require.NoError(t, s.Write([]model.Match{match("b"), match("c")}, foundAt))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	require.Equal(t, 3, strings.Count(text, "Found a slot near you"))
	require.Contains(t, text, "Name = PHC a")
	require.Contains(t, text, "Fee Type = Free")
	require.Contains(t, text, "Available Dose1 = 6")
}

func TestLockedConcurrentWritesStayValid(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "slots-finder.json")
	textPath := filepath.Join(dir, "slots-finder.txt")
	lockPath := filepath.Join(dir, "slots-finder.lock")

	// Two instances sharing only the lock file stand in for two processes.
	a := sink.NewLocked(lockPath, sink.NewTextSink(textPath), sink.NewJSONSink(jsonPath))
	b := sink.NewLocked(lockPath, sink.NewTextSink(textPath), sink.NewJSONSink(jsonPath))

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := a
			if i%2 == 1 {
				target = b
			}
			require.NoError(t, target.Write([]model.Match{match(fmt.Sprintf("w-%d", i))}, foundAt))
		}(i)
	}
	wg.Wait()

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var records []model.Record
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, writers)

	seen := make(map[string]bool, writers)
	for _, r := range records {
		seen[r.Name] = true
	}
	require.Len(t, seen, writers)

	text, err := os.ReadFile(textPath)
	require.NoError(t, err)
	require.Equal(t, writers, strings.Count(string(text), "Found a slot near you"))
}

func TestLockedSkipsEmpty(t *testing.T) {
	dir := t.TempDir()
	textPath := filepath.Join(dir, "slots-finder.txt")
	l := sink.NewLocked(filepath.Join(dir, "lock"), sink.NewTextSink(textPath))

	require.NoError(t, l.Write(nil, foundAt))
	_, err := os.Stat(textPath)
	require.True(t, os.IsNotExist(err))
}
