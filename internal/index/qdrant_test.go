package index

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestPayloadPos(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		payload map[string]*qdrant.Value
		want    int64
	}{
		{"present", map[string]*qdrant.Value{payloadPosition: qdrant.NewValueInt(3)}, 3},
		{"zero", map[string]*qdrant.Value{payloadPosition: qdrant.NewValueInt(0)}, 0},
		{"missing", map[string]*qdrant.Value{payloadContent: qdrant.NewValueString("doc")}, -1},
		{"wrong type", map[string]*qdrant.Value{payloadPosition: qdrant.NewValueString("3")}, -1},
		{"nil payload", nil, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := payloadPos(tc.payload); got != tc.want {
				t.Errorf("payloadPos = %d, want %d", got, tc.want)
			}
		})
	}
}
