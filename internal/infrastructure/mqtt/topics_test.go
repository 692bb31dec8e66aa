package mqtt

import "testing"

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"Write", topics.Write("room_12"), "tempwatch/write/room_12"},
		{"AllWrites", topics.AllWrites(), "tempwatch/write/+"},
		{"Update", topics.Update("room_12"), "tempwatch/event/update/room_12"},
		{"AllUpdates", topics.AllUpdates(), "tempwatch/event/update/+"},
		{"SystemStatus", topics.SystemStatus(), "tempwatch/system/status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestDeviceFromWriteTopic(t *testing.T) {
	tests := []struct {
		topic  string
		want   string
		wantOK bool
	}{
		{"tempwatch/write/room_12", "room_12", true},
		{"tempwatch/write/room-12", "room-12", true},
		{"tempwatch/write/", "", false},
		{"tempwatch/write/a/b", "", false},
		{"tempwatch/event/update/room_12", "", false},
		{"other/write/room_12", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			got, ok := Topics{}.DeviceFromWriteTopic(tt.topic)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("DeviceFromWriteTopic(%q) = %q, %v, want %q, %v", tt.topic, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
