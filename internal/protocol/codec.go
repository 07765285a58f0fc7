// internal/protocol/codec.go
package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Wire format: every string field is a uint16 big-endian byte length
// followed by that many bytes of UTF-8. UUIDs travel as their canonical
// string form. Variable-length lists carry an explicit uint16 element
// count so "end of list" never has to be inferred from a read failure.

var (
	// ErrMalformed reports a payload that does not match its tag's layout.
	ErrMalformed = errors.New("malformed message")
	// ErrUnknownTag reports a tag no decoder exists for.
	ErrUnknownTag = errors.New("unknown message tag")
)

type writer struct {
	buf bytes.Buffer
}

func (w *writer) writeString(s string) {
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(s)))
	w.buf.Write(l[:])
	w.buf.WriteString(s)
}

func (w *writer) writeUUID(id uuid.UUID) {
	w.writeString(id.String())
}

func (w *writer) writeUint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) writeUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

type reader struct {
	buf *bytes.Reader
}

func (r *reader) readString() (string, error) {
	var l [2]byte
	if n, err := r.buf.Read(l[:]); err != nil || n != 2 {
		return "", fmt.Errorf("%w: short field length", ErrMalformed)
	}
	n := int(binary.BigEndian.Uint16(l[:]))
	b := make([]byte, n)
	if read, err := r.buf.Read(b); err != nil || read != n {
		return "", fmt.Errorf("%w: short field body", ErrMalformed)
	}
	return string(b), nil
}

func (r *reader) readUUID() (uuid.UUID, error) {
	s, err := r.readString()
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad uuid %q", ErrMalformed, s)
	}
	return id, nil
}

func (r *reader) readUint16() (uint16, error) {
	var b [2]byte
	if n, err := r.buf.Read(b[:]); err != nil || n != 2 {
		return 0, fmt.Errorf("%w: short uint16", ErrMalformed)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func (r *reader) readUint64() (uint64, error) {
	var b [8]byte
	if n, err := r.buf.Read(b[:]); err != nil || n != 8 {
		return 0, fmt.Errorf("%w: short uint64", ErrMalformed)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// Encode serializes a MakeGUI datagram.
func (m MakeGUI) Encode() []byte {
	w := &writer{}
	w.writeString(TagMakeGUI)
	w.writeUUID(m.Viewer)
	return w.buf.Bytes()
}

// Encode serializes a GetServersNames datagram.
func (m GetServersNames) Encode() []byte {
	w := &writer{}
	w.writeString(TagGetServersNames)
	w.writeUint64(m.Seq)
	w.writeUUID(m.Viewer)
	w.writeUint16(uint16(len(m.Candidates)))
	for _, id := range m.Candidates {
		w.writeUUID(id)
	}
	return w.buf.Bytes()
}

// Encode serializes an UpdateServersNames datagram.
func (m UpdateServersNames) Encode() []byte {
	w := &writer{}
	w.writeString(TagUpdateServersNames)
	w.writeUint64(m.Seq)
	w.writeUUID(m.Viewer)
	w.writeUint16(uint16(len(m.Labels)))
	for _, label := range m.Labels {
		w.writeString(label)
	}
	return w.buf.Bytes()
}

// Encode serializes a Join datagram.
func (m Join) Encode() []byte {
	w := &writer{}
	w.writeString(TagJoin)
	w.writeUUID(m.Requester)
	w.writeUUID(m.Target)
	return w.buf.Bytes()
}

// Encode serializes a Transfer datagram.
func (m Transfer) Encode() []byte {
	w := &writer{}
	w.writeString(TagTransfer)
	w.writeUUID(m.Player)
	w.writeString(m.Server)
	return w.buf.Bytes()
}

// Encode serializes a Notify datagram.
func (m Notify) Encode() []byte {
	w := &writer{}
	w.writeString(TagNotify)
	w.writeUUID(m.Player)
	w.writeString(m.Text)
	return w.buf.Bytes()
}

// Decode reads the tag of a datagram and returns the typed message it
// carries. Unknown tags yield ErrUnknownTag; payloads that do not match
// their tag's layout yield ErrMalformed.
func Decode(data []byte) (interface{}, error) {
	r := &reader{buf: bytes.NewReader(data)}

	tag, err := r.readString()
	if err != nil {
		return nil, err
	}

	switch tag {
	case TagMakeGUI:
		viewer, err := r.readUUID()
		if err != nil {
			return nil, err
		}
		return MakeGUI{Viewer: viewer}, nil

	case TagGetServersNames:
		seq, err := r.readUint64()
		if err != nil {
			return nil, err
		}
		viewer, err := r.readUUID()
		if err != nil {
			return nil, err
		}
		count, err := r.readUint16()
		if err != nil {
			return nil, err
		}
		if count > MaxPageSize {
			return nil, fmt.Errorf("%w: candidate count %d exceeds page size", ErrMalformed, count)
		}
		candidates := make([]uuid.UUID, 0, count)
		for i := 0; i < int(count); i++ {
			id, err := r.readUUID()
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, id)
		}
		return GetServersNames{Seq: seq, Viewer: viewer, Candidates: candidates}, nil

	case TagUpdateServersNames:
		seq, err := r.readUint64()
		if err != nil {
			return nil, err
		}
		viewer, err := r.readUUID()
		if err != nil {
			return nil, err
		}
		count, err := r.readUint16()
		if err != nil {
			return nil, err
		}
		if count > MaxPageSize {
			return nil, fmt.Errorf("%w: label count %d exceeds page size", ErrMalformed, count)
		}
		labels := make([]string, 0, count)
		for i := 0; i < int(count); i++ {
			label, err := r.readString()
			if err != nil {
				return nil, err
			}
			labels = append(labels, label)
		}
		return UpdateServersNames{Seq: seq, Viewer: viewer, Labels: labels}, nil

	case TagJoin:
		requester, err := r.readUUID()
		if err != nil {
			return nil, err
		}
		target, err := r.readUUID()
		if err != nil {
			return nil, err
		}
		return Join{Requester: requester, Target: target}, nil

	case TagTransfer:
		player, err := r.readUUID()
		if err != nil {
			return nil, err
		}
		server, err := r.readString()
		if err != nil {
			return nil, err
		}
		return Transfer{Player: player, Server: server}, nil

	case TagNotify:
		player, err := r.readUUID()
		if err != nil {
			return nil, err
		}
		text, err := r.readString()
		if err != nil {
			return nil, err
		}
		return Notify{Player: player, Text: text}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
}
