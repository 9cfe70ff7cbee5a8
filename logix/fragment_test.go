package logix

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"taglink/cip"
)

// scriptedRequester feeds canned replies and records every request.
type scriptedRequester struct {
	limit    int
	replies  [][]byte
	errs     []error
	requests [][]byte
}

func (s *scriptedRequester) PayloadLimit() int { return s.limit }

func (s *scriptedRequester) RoundTrip(request []byte) ([]byte, error) {
	s.requests = append(s.requests, append([]byte{}, request...))
	i := len(s.requests) - 1
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.replies) {
		return nil, errors.New("no scripted reply")
	}
	return s.replies[i], nil
}

// fragReadReply builds one Read Tag Fragmented reply round.
func fragReadReply(status byte, code uint16, chunk []byte) []byte {
	return replyBytes(cip.SvcReadTagFragmented, status, nil, readPayload(code, chunk))
}

func TestExecuteReadFragmented(t *testing.T) {
	// 10-element DINT array delivered over four rounds.
	full := make([]byte, 40)
	for i := 0; i < 10; i++ {
		binary.LittleEndian.PutUint32(full[i*4:], uint32(i*100))
	}

	rt := &scriptedRequester{
		limit: 64,
		replies: [][]byte{
			fragReadReply(cip.StatusPartialTransfer, TypeDINT, full[0:12]),
			fragReadReply(cip.StatusPartialTransfer, TypeDINT, full[12:24]),
			fragReadReply(cip.StatusPartialTransfer, TypeDINT, full[24:36]),
			fragReadReply(cip.StatusSuccess, TypeDINT, full[36:40]),
		},
	}

	op := &Operation{Kind: KindReadFragmented, Tag: "Tank", Elements: 10}
	result := ExecuteReadFragmented(rt, op, nil)
	require.True(t, result.OK(), "Err = %v", result.Err)
	require.Len(t, rt.requests, 4)

	// Request offsets advance by the byte length of each chunk.
	// Body layout: [service][path words][path 6][elements 2][offset 4]
	for i, wantOffset := range []uint32{0, 12, 24, 36} {
		offset := binary.LittleEndian.Uint32(rt.requests[i][10:14])
		require.Equal(t, wantOffset, offset, "round %d offset", i+1)
	}

	require.Equal(t, TypeDINT, result.Value.DataType)
	require.Equal(t, full, result.Value.Bytes)

	want := make([]int64, 10)
	for i := range want {
		want[i] = int64(i * 100)
	}
	require.Equal(t, want, result.Value.GoValue())
}

func TestExecuteReadFragmentedRoundFailure(t *testing.T) {
	rt := &scriptedRequester{
		limit: 64,
		replies: [][]byte{
			fragReadReply(cip.StatusPartialTransfer, TypeDINT, []byte{1, 0, 0, 0}),
			replyBytes(cip.SvcReadTagFragmented, cip.StatusPathUnknown, nil, nil),
		},
	}

	op := &Operation{Kind: KindReadFragmented, Tag: "Tank", Elements: 2}
	result := ExecuteReadFragmented(rt, op, nil)
	require.False(t, result.OK())
	require.Nil(t, result.Value, "partial data must not leak out")
	require.Len(t, rt.requests, 2)
}

func TestExecuteReadFragmentedTransportFailure(t *testing.T) {
	rt := &scriptedRequester{
		limit: 64,
		replies: [][]byte{
			fragReadReply(cip.StatusPartialTransfer, TypeDINT, []byte{1, 0, 0, 0}),
		},
		errs: []error{nil, errors.New("connection reset")},
	}

	op := &Operation{Kind: KindReadFragmented, Tag: "Tank", Elements: 2}
	result := ExecuteReadFragmented(rt, op, nil)
	require.False(t, result.OK())
	require.ErrorContains(t, result.Err, "connection reset")
}

func TestExecuteWriteFragmented(t *testing.T) {
	// 10 INT elements against a budget of 8 bytes per round.
	value := make([]byte, 20)
	for i := range value {
		value[i] = byte(i)
	}
	info, err := AtomicType("INT")
	require.NoError(t, err)

	okReply := replyBytes(cip.SvcWriteTagFragmented, cip.StatusSuccess, nil, nil)
	rt := &scriptedRequester{
		limit:   25, // path 6 + packed 2 + overhead 9 leaves 8
		replies: [][]byte{okReply, okReply, okReply},
	}

	op := &Operation{Kind: KindWriteFragmented, Tag: "Tank", Elements: 10, Type: info, Value: value}
	result := ExecuteWriteFragmented(rt, op, nil)
	require.True(t, result.OK(), "Err = %v", result.Err)
	require.Len(t, rt.requests, 3)

	// Body layout: [service][path words][path 6][type 2][elements 2][offset 4][segment]
	wantOffsets := []uint32{0, 8, 16}
	wantSizes := []int{8, 8, 4}
	for i := range rt.requests {
		req := rt.requests[i]
		require.Equal(t, byte(0x53), req[0])
		require.Equal(t, wantOffsets[i], binary.LittleEndian.Uint32(req[12:16]), "round %d offset", i+1)
		require.Len(t, req[16:], wantSizes[i], "round %d segment", i+1)
		require.Equal(t, value[wantOffsets[i]:int(wantOffsets[i])+wantSizes[i]], req[16:])
	}
}

func TestExecuteWriteFragmentedStopsOnFailure(t *testing.T) {
	info, err := AtomicType("INT")
	require.NoError(t, err)

	rt := &scriptedRequester{
		limit: 25,
		replies: [][]byte{
			replyBytes(cip.SvcWriteTagFragmented, cip.StatusSuccess, nil, nil),
			replyBytes(cip.SvcWriteTagFragmented, cip.StatusGeneralError, []uint16{cip.ExtStatusSizeTooLarge}, nil),
		},
	}

	op := &Operation{Kind: KindWriteFragmented, Tag: "Tank", Elements: 10, Type: info, Value: make([]byte, 20)}
	result := ExecuteWriteFragmented(rt, op, nil)
	require.False(t, result.OK())
	require.Len(t, rt.requests, 2, "transfer must stop at the first failed round")
}

func TestWriteSegmentBudget(t *testing.T) {
	intInfo, err := AtomicType("INT")
	require.NoError(t, err)
	dintInfo, err := AtomicType("DINT")
	require.NoError(t, err)

	tests := []struct {
		name    string
		limit   int
		pathLen int
		info    TypeInfo
		want    int
		wantErr bool
	}{
		{"element aligned", 22, 6, intInfo, 4, false},
		{"exact multiple", 25, 6, intInfo, 8, false},
		{"dint rounds down", 27, 6, dintInfo, 8, false},
		{"structure unaligned", 27, 6, StructType(0x10, 0), 10, false},
		{"no room", 17, 6, intInfo, 0, true},
		{"below one element", 18, 6, dintInfo, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := writeSegmentBudget(tc.limit, tc.pathLen, 2, tc.info)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestSplitSegments(t *testing.T) {
	value := []byte{1, 2, 3, 4, 5, 6, 7}

	segments := splitSegments(value, 3)
	require.Len(t, segments, 3)
	require.Equal(t, []byte{1, 2, 3}, segments[0])
	require.Equal(t, []byte{7}, segments[2])

	// A value that exactly fills the budget stays in one segment.
	segments = splitSegments(value, 7)
	require.Len(t, segments, 1)

	// Zero-length values still produce one round.
	segments = splitSegments(nil, 8)
	require.Len(t, segments, 1)
	require.Empty(t, segments[0])
}
