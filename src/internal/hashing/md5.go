package hashing

import (
	"crypto/md5"
	"encoding/hex"
	"hash"
	"io"
	"strings"
)

// ChecksumProvider is implemented by everything that can report an MD5 of
// the data it has seen so far.
type ChecksumProvider interface {
	Checksum() string
}

// MD5Reader hashes data as it is read from the wrapped reader.
type MD5Reader struct {
	reader io.Reader
	sum    hash.Hash
	n      int64
}

func NewMD5Reader(reader io.Reader) *MD5Reader {
	return &MD5Reader{reader: reader, sum: md5.New()}
}

func (r *MD5Reader) Read(buf []byte) (int, error) {
	n, err := r.reader.Read(buf)
	if n > 0 {
		// hash.Hash.Write never fails
		r.sum.Write(buf[:n])
		r.n += int64(n)
	}
	return n, err
}

// Checksum returns the hex MD5 of everything read so far.
func (r *MD5Reader) Checksum() string {
	return hex.EncodeToString(r.sum.Sum(nil))
}

// BytesRead returns the number of bytes passed through the reader.
func (r *MD5Reader) BytesRead() int64 {
	return r.n
}

// LineDigest hashes a sequence of lines, each terminated by '\n', while
// collecting them into the text that produced the digest.
type LineDigest struct {
	sum   hash.Hash
	text  strings.Builder
	count int
}

func NewLineDigest() *LineDigest {
	return &LineDigest{sum: md5.New()}
}

func (d *LineDigest) Add(line string) {
	d.sum.Write([]byte(line))
	d.sum.Write([]byte{'\n'})
	d.text.WriteString(line)
	d.text.WriteByte('\n')
	d.count++
}

// Len returns the number of lines added.
func (d *LineDigest) Len() int {
	return d.count
}

// Bytes returns the lines added so far, newline-terminated.
func (d *LineDigest) Bytes() []byte {
	return []byte(d.text.String())
}

func (d *LineDigest) Checksum() string {
	return hex.EncodeToString(d.sum.Sum(nil))
}

// Sum returns the hex MD5 of data.
func Sum(data []byte) string {
	s := md5.Sum(data)
	return hex.EncodeToString(s[:])
}
