package apdu

import (
	"bytes"
	"context"
	"encoding/hex"
	"testing"

	"github.com/cardid/webcard/internal/pcsc"
	"github.com/cardid/webcard/internal/pcsc/pcscfake"
)

func TestChainedFollowsGetResponseConvention(t *testing.T) {
	fake := pcscfake.New()
	fake.SetReaders([]string{"R1"})
	rmCtx, _ := fake.EstablishContext(context.Background())
	h, proto, err := fake.Connect(context.Background(), rmCtx, "R1", pcsc.ShareShared, pcsc.ProtocolT0|pcsc.ProtocolT1)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	b1, _ := hex.DecodeString("AAAA6110")
	b2, _ := hex.DecodeString("BBBB6108")
	b3, _ := hex.DecodeString("CCCC9000")
	fake.QueueResponse("R1", b1)
	fake.QueueResponse("R1", b2)
	fake.QueueResponse("R1", b3)

	cmd, _ := hex.DecodeString("00A40400")
	result, trips, err := Chained(context.Background(), fake, h, proto, cmd)
	if err != nil {
		t.Fatalf("Chained: %v", err)
	}
	if trips != 3 {
		t.Fatalf("got %d round trips, want 3", trips)
	}
	want, _ := hex.DecodeString("AAAABBBBCCCC9000")
	if !bytes.Equal(result, want) {
		t.Fatalf("got % X want % X", result, want)
	}
}

func TestChainedSingleBlockNoGetResponse(t *testing.T) {
	fake := pcscfake.New()
	fake.SetReaders([]string{"R1"})
	rmCtx, _ := fake.EstablishContext(context.Background())
	h, proto, _ := fake.Connect(context.Background(), rmCtx, "R1", pcsc.ShareShared, pcsc.ProtocolT0|pcsc.ProtocolT1)

	resp, _ := hex.DecodeString("001020309000")
	fake.QueueResponse("R1", resp)

	cmd, _ := hex.DecodeString("00A40400")
	result, trips, err := Chained(context.Background(), fake, h, proto, cmd)
	if err != nil {
		t.Fatalf("Chained: %v", err)
	}
	if trips != 1 {
		t.Fatalf("got %d round trips, want 1", trips)
	}
	if !bytes.Equal(result, resp) {
		t.Fatalf("got % X want % X", result, resp)
	}
}

func TestSingleReturnsEmptyResponseError(t *testing.T) {
	fake := pcscfake.New()
	fake.SetReaders([]string{"R1"})
	rmCtx, _ := fake.EstablishContext(context.Background())
	h, proto, _ := fake.Connect(context.Background(), rmCtx, "R1", pcsc.ShareShared, pcsc.ProtocolT0|pcsc.ProtocolT1)

	_, err := Single(context.Background(), fake, h, proto, []byte{0x00, 0xA4, 0x04, 0x00})
	if err != ErrEmptyResponse {
		t.Fatalf("got %v want ErrEmptyResponse", err)
	}
}
