package query

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"

	"github.com/Konsultn-Engineering/querykit/database"
	"xorkevin.dev/kerrors"
)

// Field is one column of a streamed record. Every value is carried in its
// display form; Null marks SQL NULL.
type Field struct {
	Label string
	Value string
	Null  bool
}

// Record is one row in column order.
type Record struct {
	Fields []Field
}

func (r Record) Len() int {
	return len(r.Fields)
}

// Get returns the value of the first column labelled label.
func (r Record) Get(label string) (string, bool) {
	for _, f := range r.Fields {
		if f.Label == label {
			return f.Value, !f.Null
		}
	}
	return "", false
}

// Labels returns the column labels in order.
func (r Record) Labels() []string {
	labels := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		labels[i] = f.Label
	}
	return labels
}

// MarshalJSON encodes the record as an object whose keys keep column order.
// NULL is encoded as null.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Label)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if f.Null {
			buf.WriteString("null")
			continue
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func newRecord(labels []string, values []any) Record {
	fields := make([]Field, len(labels))
	for i, label := range labels {
		fields[i].Label = label
		if i < len(values) {
			v, ok := database.Render(values[i])
			fields[i].Value = v
			fields[i].Null = !ok
		} else {
			fields[i].Null = true
		}
	}
	return Record{Fields: fields}
}

// Records streams the cursor of an executed row-producing statement, one row
// per iteration. The sequence is forward-only and can be ranged over once.
// When it is exhausted, abandoned or fails, the statement is closed, which
// commits the unit of work; a failure is yielded as the final error. The
// error of a close triggered by abandonment is returned by Close.
func (s *Statement) Records(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		if err := s.executed(ModeRowProducing); err != nil {
			yield(Record{}, err)
			return
		}
		if s.consumed {
			yield(Record{}, kerrors.WithKind(nil, ErrState, "Result already consumed"))
			return
		}
		s.consumed = true

		rows := s.rows
		labels, err := rows.Columns()
		if err != nil {
			yield(Record{}, s.fail(ctx, kerrors.WithKind(err, ErrStream, "Failed to read result columns")))
			return
		}

		for rows.Next() {
			values, err := rows.Values()
			if err != nil {
				yield(Record{}, s.fail(ctx, kerrors.WithKind(err, ErrStream, "Failed to read row")))
				return
			}
			if !yield(newRecord(labels, values), nil) {
				_ = s.Close(ctx)
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Record{}, s.fail(ctx, kerrors.WithKind(err, ErrStream, "Failed to advance cursor")))
			return
		}
		if err := s.Close(ctx); err != nil {
			yield(Record{}, err)
		}
	}
}

// fail closes the statement and joins any close error to err.
func (s *Statement) fail(ctx context.Context, err error) error {
	if closeErr := s.Close(ctx); closeErr != nil {
		return errors.Join(err, closeErr)
	}
	return err
}

// WriteJSON streams the result to w as a JSON array of records, buffering
// at most one write buffer of output. The statement is closed when it
// returns.
func (s *Statement) WriteJSON(ctx context.Context, w io.Writer) error {
	if err := s.executed(ModeRowProducing); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if err := bw.WriteByte('['); err != nil {
		return errors.Join(kerrors.WithKind(err, ErrStream, "Failed to write output"), s.Close(ctx))
	}

	var writeErr error
	first := true
	for rec, err := range s.Records(ctx) {
		if err != nil {
			// the statement is already closed and err carries any close failure
			return err
		}
		if !first {
			if writeErr = bw.WriteByte(','); writeErr != nil {
				break
			}
		}
		first = false
		if writeErr = writeRecord(bw, rec); writeErr != nil {
			break
		}
	}
	if writeErr != nil {
		// abandoning the range closed the statement
		return errors.Join(kerrors.WithKind(writeErr, ErrStream, "Failed to write output"), s.Close(ctx))
	}

	if err := bw.WriteByte(']'); err != nil {
		return kerrors.WithKind(err, ErrStream, "Failed to write output")
	}
	if err := bw.Flush(); err != nil {
		return kerrors.WithKind(err, ErrStream, "Failed to flush output")
	}
	return nil
}

func writeRecord(w io.Writer, rec Record) error {
	b, err := rec.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
