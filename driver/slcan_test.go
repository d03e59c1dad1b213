package driver

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/roffe/vcican"
)

func TestEncodeFrame(t *testing.T) {
	rtr := vcican.NewFrame(0x7DF, nil)
	rtr.RemoteFlag = 1
	rtr.DataLen = 2
	tests := []struct {
		name    string
		frame   vcican.Frame
		want    string
		wantErr bool
	}{
		{"standard", vcican.NewFrame(0x1, []byte{7}), "t001107\r", false},
		{"hex data", vcican.NewFrame(0x7E8, []byte{0xab, 0xcd}), "t7E82ABCD\r", false},
		{"extended", vcican.NewExtendedFrame(0x18DAF110, []byte{0x02, 0x10, 0x81}), "T18DAF1103021081\r", false},
		{"remote", rtr, "r7DF2\r", false},
		{"empty", vcican.NewFrame(0x100, nil), "t1000\r", false},
		{"std id too large", vcican.NewFrame(0x800, nil), "", true},
		{"bad length", vcican.Frame{ID: 1, DataLen: 9}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeFrame(&tt.frame)
			if (err != nil) != tt.wantErr {
				t.Fatalf("encodeFrame() error = %v, wantErr %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("encodeFrame() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		line     string
		id       uint32
		data     []byte
		ext, rtr bool
		stamp    uint32
		wantErr  bool
	}{
		{line: "t001107", id: 0x1, data: []byte{7}},
		{line: "t7E82ABCD1A2B", id: 0x7E8, data: []byte{0xAB, 0xCD}, stamp: 0x1A2B},
		{line: "T18DAF1103021081", id: 0x18DAF110, data: []byte{0x02, 0x10, 0x81}, ext: true},
		{line: "r7DF2", id: 0x7DF, data: []byte{0, 0}, rtr: true},
		{line: "t1000", id: 0x100, data: []byte{}},
		{line: "t0019", wantErr: true},
		{line: "t0012AB", wantErr: true},
		{line: "tXYZ0", wantErr: true},
		{line: "x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			f, err := decodeFrame([]byte(tt.line))
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeFrame() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if f.ID != tt.id || f.Extended() != tt.ext || f.Remote() != tt.rtr {
				t.Errorf("decodeFrame() = %+v", f)
			}
			if !tt.rtr && !bytes.Equal(f.Payload(), tt.data) {
				t.Errorf("Payload() = %X, want %X", f.Payload(), tt.data)
			}
			if int(f.DataLen) != len(tt.data) {
				t.Errorf("DataLen = %d, want %d", f.DataLen, len(tt.data))
			}
			if f.TimeStamp != tt.stamp {
				t.Errorf("TimeStamp = %X, want %X", f.TimeStamp, tt.stamp)
			}
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	in := vcican.NewExtendedFrame(0x1FFFFFFF, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	b, err := encodeFrame(&in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := decodeFrame(bytes.TrimSuffix(b, []byte{'\r'}))
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("decodeFrame(encodeFrame()) = %+v, want %+v", out, in)
	}
}

func TestDecodeStatus(t *testing.T) {
	tests := []struct {
		line    string
		want    []string
		wantErr bool
	}{
		{line: "F00"},
		{line: "F01", want: []string{"receive FIFO"}, wantErr: true},
		{line: "F24", want: []string{"error warning", "error passive"}, wantErr: true},
		{line: "F10"},
		{line: "F80", want: []string{"bus error"}, wantErr: true},
		{line: "FZZ", want: []string{"malformed"}, wantErr: true},
		{line: "F1", want: []string{"malformed"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			err := decodeStatus([]byte(tt.line))
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeStatus() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, w := range tt.want {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("decodeStatus() = %q, missing %q", err, w)
				}
			}
		})
	}
}

func TestSLCANNeedsTwoPorts(t *testing.T) {
	_, err := vcican.NewDriver("slcan", &vcican.DriverConfig{Ports: []string{"COM1"}})
	if err == nil || vcican.IsRecoverable(err) {
		t.Errorf("NewDriver() error = %v, want unrecoverable", err)
	}
}

func TestSLCANNotOpen(t *testing.T) {
	drv, err := NewSLCAN(&vcican.DriverConfig{Ports: []string{"COM1", "COM2"}})
	if err != nil {
		t.Fatal(err)
	}
	cfg := vcican.DefaultChannelConfig()
	if err := drv.InitCAN(vcican.DefaultDevice(), vcican.CAN1, &cfg); !errors.Is(err, ErrNotOpen) {
		t.Errorf("InitCAN() error = %v, want ErrNotOpen", err)
	}
}
