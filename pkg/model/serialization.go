package model

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	// Magic bytes that identify our serialized format
	SerializationMagic uint32 = 0x47444952 // "GDIR"

	// Version of the serialization format
	SerializationVersion uint16 = 1

	// Type constants for serialized entities
	TypeNode  uint8 = 1
	TypeEdge  uint8 = 2
	TypeGraph uint8 = 3

	// maxFieldSize bounds a single length-prefixed field when decoding
	maxFieldSize = 16 << 20
)

// ErrInvalidSerializedData is returned when attempting to deserialize invalid data
var ErrInvalidSerializedData = errors.New("invalid serialized data")

// ErrUnsupportedVersion is returned when attempting to deserialize data with an unsupported version
var ErrUnsupportedVersion = errors.New("unsupported serialization version")

// ErrInvalidEntityType is returned when encountering an invalid entity type during deserialization
var ErrInvalidEntityType = errors.New("invalid entity type")

// binaryWriter remembers the first write error so callers can check once
type binaryWriter struct {
	w   io.Writer
	err error
}

func (bw *binaryWriter) write(v interface{}) {
	if bw.err != nil {
		return
	}
	bw.err = binary.Write(bw.w, binary.LittleEndian, v)
}

func (bw *binaryWriter) bytes(b []byte) {
	bw.write(uint32(len(b)))
	if bw.err != nil {
		return
	}
	_, bw.err = bw.w.Write(b)
}

func (bw *binaryWriter) string(s string) {
	bw.bytes([]byte(s))
}

func (bw *binaryWriter) time(t time.Time) {
	if bw.err != nil {
		return
	}
	b, err := t.MarshalBinary()
	if err != nil {
		bw.err = err
		return
	}
	bw.bytes(b)
}

func (bw *binaryWriter) tags(tags Tags) {
	bw.write(uint32(len(tags)))
	for _, tag := range tags {
		bw.string(tag.Name)
		bw.string(tag.Value)
	}
}

type binaryReader struct {
	r   io.Reader
	err error
}

func (br *binaryReader) read(v interface{}) {
	if br.err != nil {
		return
	}
	br.err = binary.Read(br.r, binary.LittleEndian, v)
}

func (br *binaryReader) bytes() []byte {
	var n uint32
	br.read(&n)
	if br.err != nil {
		return nil
	}
	if n > maxFieldSize {
		br.err = fmt.Errorf("%w: field of %d bytes", ErrInvalidSerializedData, n)
		return nil
	}
	b := make([]byte, n)
	_, br.err = io.ReadFull(br.r, b)
	return b
}

func (br *binaryReader) string() string {
	return string(br.bytes())
}

func (br *binaryReader) time() time.Time {
	b := br.bytes()
	if br.err != nil {
		return time.Time{}
	}
	var t time.Time
	br.err = t.UnmarshalBinary(b)
	return t
}

func (br *binaryReader) tags() Tags {
	var count uint32
	br.read(&count)
	if br.err != nil {
		return nil
	}
	tags := make(Tags, 0, min(count, 1024))
	for i := uint32(0); i < count && br.err == nil; i++ {
		name := br.string()
		value := br.string()
		tags = append(tags, Tag{Name: name, Value: value})
	}
	return tags
}

// WriteHeader writes the format header followed by the entity type
func WriteHeader(w io.Writer, entityType uint8) error {
	bw := &binaryWriter{w: w}
	bw.write(SerializationMagic)
	bw.write(SerializationVersion)
	bw.write(entityType)
	return bw.err
}

// ReadHeader reads and validates the format header, returning the entity type
func ReadHeader(r io.Reader) (uint8, error) {
	var magic uint32
	var version uint16
	var entityType uint8

	br := &binaryReader{r: r}
	br.read(&magic)
	if br.err != nil {
		return 0, ErrInvalidSerializedData
	}
	if magic != SerializationMagic {
		return 0, ErrInvalidSerializedData
	}

	br.read(&version)
	if br.err != nil {
		return 0, ErrInvalidSerializedData
	}
	if version != SerializationVersion {
		return 0, ErrUnsupportedVersion
	}

	br.read(&entityType)
	if br.err != nil {
		return 0, ErrInvalidSerializedData
	}
	return entityType, nil
}

// WriteNode writes the body of a node without a header
func WriteNode(w io.Writer, node *Node) error {
	if node == nil {
		return errors.New("cannot serialize nil Node")
	}
	bw := &binaryWriter{w: w}
	bw.string(node.Key)
	bw.time(node.CreatedDate)
	bw.tags(node.Tags)
	return bw.err
}

// ReadNode reads a node body written by WriteNode
func ReadNode(r io.Reader) (*Node, error) {
	br := &binaryReader{r: r}
	node := &Node{}
	node.Key = br.string()
	node.CreatedDate = br.time()
	node.Tags = br.tags()
	if br.err != nil {
		return nil, fmt.Errorf("reading node: %w", br.err)
	}
	return node, nil
}

// WriteEdge writes the body of an edge without a header
func WriteEdge(w io.Writer, edge *Edge) error {
	if edge == nil {
		return errors.New("cannot serialize nil Edge")
	}
	bw := &binaryWriter{w: w}
	bw.string(edge.Key)
	bw.string(edge.FromKey)
	bw.string(edge.ToKey)
	bw.string(edge.EdgeType)
	bw.time(edge.CreatedDate)
	bw.tags(edge.Tags)
	return bw.err
}

// ReadEdge reads an edge body written by WriteEdge
func ReadEdge(r io.Reader) (*Edge, error) {
	br := &binaryReader{r: r}
	edge := &Edge{}
	edge.Key = br.string()
	edge.FromKey = br.string()
	edge.ToKey = br.string()
	edge.EdgeType = br.string()
	edge.CreatedDate = br.time()
	edge.Tags = br.tags()
	if br.err != nil {
		return nil, fmt.Errorf("reading edge: %w", br.err)
	}
	return edge, nil
}
