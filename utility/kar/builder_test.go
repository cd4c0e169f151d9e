// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"bytes"
	"os"
	"testing"
	"time"
)

func TestAddAndWrite(t *testing.T) {
	builder, err := NewBuilder(Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer builder.Close()

	if err := builder.Add("test", []byte("idunvovkjnreovmegihjbrqlkmfrjnb")); err != nil {
		t.Error(err)
	}
	if err := builder.Add("test2", []byte("idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb")); err != nil {
		t.Error(err)
	}

	if len(builder.files) != 2 {
		t.Error("incorrect number of files present")
	}

	buf := bytes.NewBuffer(nil)
	num, err := builder.WriteTo(buf)
	if err != nil {
		t.Error(err)
	}
	if num != int64(buf.Len()) {
		t.Errorf("reported %d bytes written, buffer holds %d", num, buf.Len())
	}
	if !bytes.HasPrefix(buf.Bytes(), Magic[:]) {
		t.Error("archive does not start with magic")
	}
}

func TestAddDuplicate(t *testing.T) {
	builder, err := NewBuilder(Header{Version: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer builder.Close()

	if err := builder.Add("shader.vert.spv", []byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	if err := builder.Add("shader.vert.spv", []byte{5, 6, 7, 8}); err == nil {
		t.Error("duplicate name accepted")
	}
	if builder.Len() != 1 {
		t.Errorf("expected 1 file, got %d", builder.Len())
	}
}

func TestCloseRemovesTemp(t *testing.T) {
	builder, err := NewBuilder(Header{Version: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := builder.Add("a", []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := builder.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(builder.tempDir); !os.IsNotExist(err) {
		t.Error("temporary dir still present")
	}
}

func TestInt64Binary(t *testing.T) {
	for _, n := range []int64{0, 1, 255, 1 << 40} {
		bts := int64ToBinary(n)
		if len(bts) != HeaderSizeNumberLength {
			t.Errorf("encoded %d into %d bytes", n, len(bts))
		}
		if got := binaryToInt64(bts); got != n {
			t.Errorf("expected %d, got %d", n, got)
		}
	}
}
