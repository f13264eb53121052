package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oy3o/neuro"
)

// header(1, Child), a = 1, label = "x", end of group
var sample = []byte{0x15, 0x10, 0x02, 0x13, 0x01, 'x', 0x00}

const sampleDump = "1: Child {\n  1: VarInt 2 (zigzag 1)\n  2: Length 1 \"x\"\n}\n"

func runCmd(t *testing.T, stdin []byte, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(args, bytes.NewReader(stdin), &out)
	return out.String(), err
}

func TestDumpStdin(t *testing.T) {
	out, err := runCmd(t, sample)
	require.NoError(t, err)
	assert.Equal(t, sampleDump, out)

	out, err = runCmd(t, sample, "-")
	require.NoError(t, err)
	assert.Equal(t, sampleDump, out)
}

func TestDumpCompressedFile(t *testing.T) {
	dir := t.TempDir()
	for _, c := range []neuro.Compression{neuro.CompressionGzip, neuro.CompressionZstd, neuro.CompressionLZ4} {
		packed, err := neuro.Compress(sample, c)
		require.NoError(t, err)
		path := filepath.Join(dir, "sample."+c.String())
		require.NoError(t, os.WriteFile(path, packed, 0o644))

		out, err := runCmd(t, nil, path)
		require.NoError(t, err, c.String())
		assert.Equal(t, sampleDump, out, c.String())

		out, err = runCmd(t, nil, "--compression", c.String(), path)
		require.NoError(t, err, c.String())
		assert.Equal(t, sampleDump, out, c.String())
	}
}

func TestDumpRecords(t *testing.T) {
	stream := append([]byte{byte(len(sample))}, sample...)
	stream = append(stream, 0x04, 0x15, 0x10, 0x04, 0x00)
	out, err := runCmd(t, stream, "--records")
	require.NoError(t, err)
	assert.Equal(t, "record 0 size=7\n"+sampleDump+"record 1 size=4\n1: Child {\n  1: VarInt 4 (zigzag 2)\n}\n", out)

	_, err = runCmd(t, stream[:len(stream)-1], "--records")
	assert.ErrorIs(t, err, neuro.ErrUnexpectedEndOfData)
}

func TestDumpBundle(t *testing.T) {
	// run(id 7, one item), name "a", body header(2, Child), end of group
	bundle := []byte{0x07, 0x01, 0x01, 'a', 0x02, 0x25, 0x00}
	out, err := runCmd(t, bundle, "--bundle")
	require.NoError(t, err)
	assert.Equal(t, "item \"a\" global=7 ref=2 size=2\n  2: Child {\n  }\n", out)
}

func TestLimit(t *testing.T) {
	packed, err := neuro.Compress(sample, neuro.CompressionZstd)
	require.NoError(t, err)
	_, err = runCmd(t, packed, "--limit", "3")
	assert.ErrorIs(t, err, neuro.ErrDecompressLimit)
	_, err = runCmd(t, packed, "--limit", "3", "--compression", "zstd")
	assert.ErrorIs(t, err, neuro.ErrDecompressLimit)
}

func TestBadArguments(t *testing.T) {
	_, err := runCmd(t, sample, "--bundle", "--records")
	assert.Error(t, err)
	_, err = runCmd(t, sample, "--compression", "brotli")
	assert.ErrorIs(t, err, neuro.ErrUnknownCompression)
	_, err = runCmd(t, sample, "--no-such-flag")
	assert.Error(t, err)
	_, err = runCmd(t, sample, "a", "b")
	assert.Error(t, err)
	_, err = runCmd(t, nil, filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = runCmd(t, nil, "--help")
	assert.NoError(t, err)
}
