package vcican

import (
	"errors"
	"testing"
	"unsafe"
)

func TestLayout(t *testing.T) {
	if got := unsafe.Sizeof(Frame{}); got != 24 {
		t.Errorf("sizeof Frame = %d, want 24", got)
	}
	if got := unsafe.Sizeof(ChannelConfig{}); got != 16 {
		t.Errorf("sizeof ChannelConfig = %d, want 16", got)
	}
	if got := unsafe.Offsetof(Frame{}.Data); got != 13 {
		t.Errorf("offset of Data = %d, want 13", got)
	}
	if got := unsafe.Offsetof(ChannelConfig{}.Mode); got != 15 {
		t.Errorf("offset of Mode = %d, want 15", got)
	}
}

func TestNewFrame(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantLen uint8
	}{
		{"empty", nil, 0},
		{"one", []byte{7}, 1},
		{"full", []byte{1, 2, 3, 4, 5, 6, 7, 8}, 8},
		{"truncated", []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFrame(0x123, tt.data)
			if f.ID != 0x123 {
				t.Errorf("ID = 0x%X, want 0x123", f.ID)
			}
			if f.DataLen != tt.wantLen {
				t.Errorf("DataLen = %d, want %d", f.DataLen, tt.wantLen)
			}
			if f.Extended() || f.Remote() {
				t.Errorf("unexpected flags %+v", f)
			}
			if err := f.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestMustFramePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustFrame() did not panic on 9 bytes")
		}
	}()
	MustFrame(1, make([]byte, 9))
}

func TestFramePayload(t *testing.T) {
	tests := []struct {
		name    string
		dataLen uint8
		want    int
		wantErr bool
	}{
		{"zero", 0, 0, false},
		{"one", 1, 1, false},
		{"eight", 8, 8, false},
		{"corrupt", 15, 8, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Frame{ID: 1, DataLen: tt.dataLen}
			if got := len(f.Payload()); got != tt.want {
				t.Errorf("len(Payload()) = %d, want %d", got, tt.want)
			}
			err := f.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrDataLength) {
				t.Errorf("Validate() error = %v, want ErrDataLength", err)
			}
		})
	}
}

func TestFrameString(t *testing.T) {
	f := NewFrame(0x1, []byte{7})
	want := "0x001 || 1 || 07                      || 00000111"
	if got := f.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	rtr := NewExtendedFrame(0x1ABCDEF, nil)
	rtr.RemoteFlag = 1
	if got, want := rtr.String(), "0x01ABCDEF || 0 || RTR"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
