package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"

	"git.canoozie.net/riddling/graphdir/pkg/model"
)

// Journal errors
var (
	ErrJournalCorrupted     = errors.New("journal is corrupted")
	ErrJournalClosed        = errors.New("journal is closed")
	ErrInvalidJournalRecord = errors.New("invalid journal record")
)

// Journal header constants
const (
	JournalMagic   uint32 = 0x474A4E4C // "GJNL"
	JournalVersion uint16 = 1

	journalHeaderSize = 6

	// maxRecordSize bounds a single record when reading
	maxRecordSize = 64 << 20
)

// JournalRecord is one committed command batch
type JournalRecord struct {
	Seq       uint64 // Batch sequence number, increasing
	Timestamp int64  // Commit time in Unix nanoseconds
	Command   string // Batch text as executed
}

// Journal is an append-only log of committed command batches. Replaying it
// on top of the last snapshot restores the graph.
type Journal struct {
	mu          sync.Mutex
	file        *os.File
	writer      *bufio.Writer
	path        string
	isOpen      bool
	syncOnWrite bool
	logger      model.Logger
}

// JournalConfig holds configuration options for the journal
type JournalConfig struct {
	Path        string       // Path to the journal file
	SyncOnWrite bool         // Whether to sync to disk after each append
	Logger      model.Logger // Logger for journal operations
}

// OpenJournal opens the journal at the configured path, creating it if needed
func OpenJournal(config JournalConfig) (*Journal, error) {
	if config.Logger == nil {
		config.Logger = model.DefaultLoggerInstance
	}

	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	file, err := os.OpenFile(config.Path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	j := &Journal{
		file:        file,
		writer:      bufio.NewWriter(file),
		path:        config.Path,
		isOpen:      true,
		syncOnWrite: config.SyncOnWrite,
		logger:      config.Logger,
	}

	fileInfo, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	if fileInfo.Size() == 0 {
		if err := j.writeHeader(); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write journal header: %w", err)
		}
	} else if err := j.verifyHeader(); err != nil {
		file.Close()
		return nil, fmt.Errorf("invalid journal header: %w", err)
	}

	j.logger.Info("Opened journal at %s", config.Path)
	return j, nil
}

// Close flushes and closes the journal
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.isOpen {
		return nil
	}
	j.isOpen = false

	if err := j.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush journal: %w", err)
	}
	if err := j.file.Close(); err != nil {
		return fmt.Errorf("failed to close journal file: %w", err)
	}

	j.logger.Info("Closed journal at %s", j.path)
	return nil
}

// Append writes a record at the end of the journal
func (j *Journal) Append(record JournalRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.isOpen {
		return ErrJournalClosed
	}

	if err := j.writeRecord(record); err != nil {
		return fmt.Errorf("failed to append journal record %d: %w", record.Seq, err)
	}

	j.logger.Debug("Journaled batch %d (%d bytes)", record.Seq, len(record.Command))
	return nil
}

// Sync flushes the journal to disk
func (j *Journal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.isOpen {
		return ErrJournalClosed
	}

	if err := j.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush journal buffer: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync journal to disk: %w", err)
	}
	return nil
}

// Replay calls fn for every record with a sequence number greater than
// after, in journal order, and returns the number of records applied. A
// damaged tail left by an interrupted append is cut off so that later
// appends stay readable. An error from fn stops the replay and is returned.
func (j *Journal) Replay(after uint64, fn func(JournalRecord) error) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.isOpen {
		return 0, ErrJournalClosed
	}

	if err := j.writer.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush journal before replay: %w", err)
	}
	if _, err := j.file.Seek(journalHeaderSize, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to seek to journal data: %w", err)
	}

	reader := bufio.NewReader(j.file)
	good := int64(journalHeaderSize)
	recordCount := 0
	applyCount := 0

	for {
		record, size, err := readRecord(reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			j.logger.Warn("Discarding journal tail at offset %d: %v", good, err)
			if err := j.file.Truncate(good); err != nil {
				return applyCount, fmt.Errorf("failed to cut damaged journal tail: %w", err)
			}
			break
		}
		good += size
		recordCount++

		if record.Seq <= after {
			continue
		}
		if err := fn(record); err != nil {
			return applyCount, fmt.Errorf("replaying journal record %d: %w", record.Seq, err)
		}
		applyCount++
	}

	if _, err := j.file.Seek(0, io.SeekEnd); err != nil {
		return applyCount, fmt.Errorf("failed to seek to end of journal: %w", err)
	}

	j.logger.Info("Replayed %d of %d records from journal", applyCount, recordCount)
	return applyCount, nil
}

// Truncate removes every record from the journal
func (j *Journal) Truncate() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.isOpen {
		return ErrJournalClosed
	}

	if err := j.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush journal: %w", err)
	}
	if err := j.file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate journal file: %w", err)
	}
	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind journal file: %w", err)
	}
	j.writer.Reset(j.file)

	if err := j.writeHeader(); err != nil {
		return fmt.Errorf("failed to write journal header: %w", err)
	}

	j.logger.Debug("Truncated journal at %s", j.path)
	return nil
}

// Path returns the path to the journal file
func (j *Journal) Path() string {
	return j.path
}

func (j *Journal) writeHeader() error {
	if err := binary.Write(j.writer, binary.LittleEndian, JournalMagic); err != nil {
		return err
	}
	if err := binary.Write(j.writer, binary.LittleEndian, JournalVersion); err != nil {
		return err
	}
	return j.flush()
}

func (j *Journal) verifyHeader() error {
	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	var magic uint32
	if err := binary.Read(j.file, binary.LittleEndian, &magic); err != nil {
		return err
	}
	if magic != JournalMagic {
		return ErrJournalCorrupted
	}

	var version uint16
	if err := binary.Read(j.file, binary.LittleEndian, &version); err != nil {
		return err
	}
	if version != JournalVersion {
		return ErrJournalCorrupted
	}

	_, err := j.file.Seek(0, io.SeekEnd)
	return err
}

// flush pushes buffered data to the file, syncing when configured
func (j *Journal) flush() error {
	if err := j.writer.Flush(); err != nil {
		return err
	}
	if j.syncOnWrite {
		return j.file.Sync()
	}
	return nil
}

// Records are framed as checksum (uint64) | body size (uint32) | body, with
// body = seq (uint64) | timestamp (int64) | command length (uint32) | command.
// The checksum is the xxhash of the body.
func encodeRecord(record JournalRecord) []byte {
	body := make([]byte, 20+len(record.Command))
	binary.LittleEndian.PutUint64(body[0:], record.Seq)
	binary.LittleEndian.PutUint64(body[8:], uint64(record.Timestamp))
	binary.LittleEndian.PutUint32(body[16:], uint32(len(record.Command)))
	copy(body[20:], record.Command)
	return body
}

func (j *Journal) writeRecord(record JournalRecord) error {
	body := encodeRecord(record)

	if err := binary.Write(j.writer, binary.LittleEndian, xxhash.Sum64(body)); err != nil {
		return err
	}
	if err := binary.Write(j.writer, binary.LittleEndian, uint32(len(body))); err != nil {
		return err
	}
	if _, err := j.writer.Write(body); err != nil {
		return err
	}
	return j.flush()
}

// readRecord reads one record and returns it with its framed size. A clean
// end of file is io.EOF; anything else that cannot be read back is an error.
func readRecord(reader *bufio.Reader) (JournalRecord, int64, error) {
	var record JournalRecord

	var checksum uint64
	if err := binary.Read(reader, binary.LittleEndian, &checksum); err != nil {
		if err == io.EOF {
			return record, 0, io.EOF
		}
		return record, 0, fmt.Errorf("%w: %v", ErrInvalidJournalRecord, err)
	}

	var size uint32
	if err := binary.Read(reader, binary.LittleEndian, &size); err != nil {
		return record, 0, fmt.Errorf("%w: %v", ErrInvalidJournalRecord, err)
	}
	if size < 20 || size > maxRecordSize {
		return record, 0, fmt.Errorf("%w: record size %d", ErrInvalidJournalRecord, size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(reader, body); err != nil {
		return record, 0, fmt.Errorf("%w: %v", ErrInvalidJournalRecord, err)
	}
	if xxhash.Sum64(body) != checksum {
		return record, 0, ErrJournalCorrupted
	}

	record.Seq = binary.LittleEndian.Uint64(body[0:])
	record.Timestamp = int64(binary.LittleEndian.Uint64(body[8:]))
	commandLen := binary.LittleEndian.Uint32(body[16:])
	if int(commandLen) != len(body)-20 {
		return record, 0, fmt.Errorf("%w: command length %d", ErrInvalidJournalRecord, commandLen)
	}
	record.Command = string(body[20:])

	return record, int64(12 + size), nil
}
