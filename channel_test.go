package vcican

import "testing"

func TestChannelString(t *testing.T) {
	if CAN1.String() != "CAN1" || CAN2.String() != "CAN2" {
		t.Errorf("got %s %s", CAN1, CAN2)
	}
	if Channel(2).Valid() {
		t.Error("Channel(2).Valid() = true")
	}
}

func TestTimingForRate(t *testing.T) {
	tests := []struct {
		kbit    float64
		t0, t1  uint8
		wantErr bool
	}{
		{1000, 0x00, 0x14, false},
		{500, 0x00, 0x1C, false},
		{250, 0x01, 0x1C, false},
		{125, 0x03, 0x1C, false},
		{5, 0xBF, 0xFF, false},
		{33.3, 0, 0, true},
	}
	for _, tt := range tests {
		t0, t1, err := TimingForRate(tt.kbit)
		if (err != nil) != tt.wantErr {
			t.Errorf("TimingForRate(%g) error = %v, wantErr %v", tt.kbit, err, tt.wantErr)
			continue
		}
		if t0 != tt.t0 || t1 != tt.t1 {
			t.Errorf("TimingForRate(%g) = %02X %02X, want %02X %02X", tt.kbit, t0, t1, tt.t0, tt.t1)
		}
		if !tt.wantErr {
			if got := RateForTiming(t0, t1); got != tt.kbit {
				t.Errorf("RateForTiming(%02X, %02X) = %g, want %g", t0, t1, got, tt.kbit)
			}
		}
	}
}

func TestDefaultChannelConfig(t *testing.T) {
	c := DefaultChannelConfig()
	if c.AccCode != 0 || c.AccMask != 0xFFFFFFFF || c.Filter != FilterSingle || c.Mode != ModeNormal {
		t.Errorf("unexpected default %+v", c)
	}
	if got := c.Rate(); got != 250 {
		t.Errorf("Rate() = %g, want 250", got)
	}
}

func TestAccepts(t *testing.T) {
	tests := []struct {
		name     string
		code     uint32
		mask     uint32
		id       uint32
		extended bool
		want     bool
	}{
		{"open filter std", 0, 0xFFFFFFFF, 0x7FF, false, true},
		{"open filter ext", 0, 0xFFFFFFFF, 0x1FFFFFFF, true, true},
		{"exact std match", 0x123 << 21, 0x001FFFFF, 0x123, false, true},
		{"exact std miss", 0x123 << 21, 0x001FFFFF, 0x124, false, false},
		{"exact ext match", 0x18DAF110 << 3, 0x7, 0x18DAF110, true, true},
		{"exact ext miss", 0x18DAF110 << 3, 0x7, 0x18DAF111, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ChannelConfig{AccCode: tt.code, AccMask: tt.mask}
			if got := c.Accepts(tt.id, tt.extended); got != tt.want {
				t.Errorf("Accepts(0x%X) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}
