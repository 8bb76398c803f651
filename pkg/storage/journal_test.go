package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.canoozie.net/riddling/graphdir/pkg/model"
)

func openTestJournal(t *testing.T, path string) *Journal {
	t.Helper()
	j, err := OpenJournal(JournalConfig{Path: path, SyncOnWrite: true, Logger: model.NewNoOpLogger()})
	require.NoError(t, err)
	return j
}

func replayAll(t *testing.T, j *Journal, after uint64) []JournalRecord {
	t.Helper()
	var records []JournalRecord
	_, err := j.Replay(after, func(r JournalRecord) error {
		records = append(records, r)
		return nil
	})
	require.NoError(t, err)
	return records
}

func TestJournalAppendAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphs", "default.journal")
	j := openTestJournal(t, path)

	records := []JournalRecord{
		{Seq: 1, Timestamp: 100, Command: "add node key=a;"},
		{Seq: 2, Timestamp: 200, Command: "add edge fromKey=a,toKey=b,edgeType=owns;"},
		{Seq: 3, Timestamp: 300, Command: ""},
	}
	for _, r := range records {
		require.NoError(t, j.Append(r))
	}
	require.NoError(t, j.Close())

	j = openTestJournal(t, path)
	defer j.Close()

	assert.Equal(t, records, replayAll(t, j, 0))
	assert.Equal(t, records[2:], replayAll(t, j, 2))
	assert.Equal(t, path, j.Path())
}

func TestJournalAppendAfterReplay(t *testing.T) {
	j := openTestJournal(t, filepath.Join(t.TempDir(), "g.journal"))
	defer j.Close()

	require.NoError(t, j.Append(JournalRecord{Seq: 1, Command: "add node key=a;"}))
	assert.Len(t, replayAll(t, j, 0), 1)

	require.NoError(t, j.Append(JournalRecord{Seq: 2, Command: "add node key=b;"}))
	assert.Len(t, replayAll(t, j, 0), 2)
}

func TestJournalTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.journal")
	j := openTestJournal(t, path)

	require.NoError(t, j.Append(JournalRecord{Seq: 1, Command: "add node key=a;"}))
	require.NoError(t, j.Truncate())
	assert.Empty(t, replayAll(t, j, 0))

	require.NoError(t, j.Append(JournalRecord{Seq: 2, Command: "add node key=b;"}))
	require.NoError(t, j.Close())

	j = openTestJournal(t, path)
	defer j.Close()
	records := replayAll(t, j, 0)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(2), records[0].Seq)
}

func TestJournalDropsDamagedTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.journal")
	j := openTestJournal(t, path)
	require.NoError(t, j.Append(JournalRecord{Seq: 1, Command: "add node key=a;"}))
	require.NoError(t, j.Append(JournalRecord{Seq: 2, Command: "add node key=b;"}))
	require.NoError(t, j.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-3))

	j = openTestJournal(t, path)
	records := replayAll(t, j, 0)
	require.Len(t, records, 1)
	assert.Equal(t, "add node key=a;", records[0].Command)

	// Records appended after the cut are readable
	require.NoError(t, j.Append(JournalRecord{Seq: 2, Command: "add node key=c;"}))
	require.NoError(t, j.Close())

	j = openTestJournal(t, path)
	defer j.Close()
	records = replayAll(t, j, 0)
	require.Len(t, records, 2)
	assert.Equal(t, "add node key=c;", records[1].Command)
}

func TestJournalDetectsChecksumMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.journal")
	j := openTestJournal(t, path)
	require.NoError(t, j.Append(JournalRecord{Seq: 1, Command: "add node key=a;"}))
	require.NoError(t, j.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0644))

	j = openTestJournal(t, path)
	defer j.Close()
	assert.Empty(t, replayAll(t, j, 0))
}

func TestJournalRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.journal")
	require.NoError(t, os.WriteFile(path, []byte("not a journal"), 0644))

	_, err := OpenJournal(JournalConfig{Path: path, Logger: model.NewNoOpLogger()})
	assert.ErrorIs(t, err, ErrJournalCorrupted)
}

func TestJournalReplayStopsOnCallbackError(t *testing.T) {
	j := openTestJournal(t, filepath.Join(t.TempDir(), "g.journal"))
	defer j.Close()

	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, j.Append(JournalRecord{Seq: seq, Command: "add node key=a;"}))
	}

	boom := errors.New("boom")
	applied, err := j.Replay(0, func(r JournalRecord) error {
		if r.Seq == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, applied)
}

func TestJournalClosed(t *testing.T) {
	j := openTestJournal(t, filepath.Join(t.TempDir(), "g.journal"))
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	assert.ErrorIs(t, j.Append(JournalRecord{Seq: 1}), ErrJournalClosed)
	assert.ErrorIs(t, j.Truncate(), ErrJournalClosed)
	assert.ErrorIs(t, j.Sync(), ErrJournalClosed)
	_, err := j.Replay(0, func(JournalRecord) error { return nil })
	assert.ErrorIs(t, err, ErrJournalClosed)
}
