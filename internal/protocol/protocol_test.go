package protocol

import (
	"encoding/json"
	"testing"
)

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrProtoVersion,
		ErrProtoSchema,
		ErrHostBusy,
		ErrOutOfRange,
		ErrUnknownBlock,
		ErrNoPlayer,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestDecodeBase(t *testing.T) {
	base, err := DecodeBase([]byte(`{"type":"STATE","protocol_version":"1.0","players":[]}`))
	if err != nil {
		t.Fatal(err)
	}
	if base.Type != TypeState || base.ProtocolVersion != Version {
		t.Errorf("DecodeBase = %+v", base)
	}
	if _, err := DecodeBase([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestValidateSamples(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	tests := []struct {
		name  string
		typ   string
		raw   string
		valid bool
	}{
		{"hello", TypeHello, `{"type":"HELLO","protocol_version":"1.0","host_id":"bds-1","capabilities":{"bulk_fill":true}}`, true},
		{"hello without host", TypeHello, `{"type":"HELLO","protocol_version":"1.0"}`, false},
		{"hello wrong type", TypeHello, `{"type":"STATE","protocol_version":"1.0","host_id":"x"}`, false},
		{"state", TypeState, `{
			"type":"STATE","protocol_version":"1.0","tick":12,
			"players":[{
				"id":"p1","dimension":"overworld",
				"head":[14,67.62,14],"view":[-0.5,-0.3,-0.5],
				"selected_slot":0,
				"hotbar":[{"id":"minecraft:dirt","count":12},{}],
				"hit":{"block":[10,64,10],"face":"Up","face_location":[0.1,1,0.1],
				       "material":{"id":"minecraft:stone","states":{"stone_type":"granite"}}}
			}]}`, true},
		{"state no hit", TypeState, `{"type":"STATE","protocol_version":"1.0","players":[
			{"id":"p1","dimension":"overworld","head":[0,0,0],"view":[0,0,1],"selected_slot":8}]}`, true},
		{"state bad slot", TypeState, `{"type":"STATE","protocol_version":"1.0","players":[
			{"id":"p1","dimension":"overworld","head":[0,0,0],"view":[0,0,1],"selected_slot":9}]}`, false},
		{"state short vector", TypeState, `{"type":"STATE","protocol_version":"1.0","players":[
			{"id":"p1","dimension":"overworld","head":[0,0],"view":[0,0,1],"selected_slot":0}]}`, false},
		{"state fractional block", TypeState, `{"type":"STATE","protocol_version":"1.0","players":[
			{"id":"p1","dimension":"overworld","head":[0,0,0],"view":[0,0,1],"selected_slot":0,
			 "hit":{"block":[1.5,2,3],"face":"up","face_location":[0,1,0]}}]}`, false},
		{"state bad face", TypeState, `{"type":"STATE","protocol_version":"1.0","players":[
			{"id":"p1","dimension":"overworld","head":[0,0,0],"view":[0,0,1],"selected_slot":0,
			 "hit":{"block":[1,2,3],"face":"Top","face_location":[0,1,0]}}]}`, false},
		{"events", TypeEvent, `{"type":"EVENT","protocol_version":"1.0","events":[
			{"kind":"block_placed","player":"p1","dimension":"overworld","block":[10,64,10],"material":{"id":"minecraft:stone"}},
			{"kind":"item_start_use","player":"p1","item":"qsc:resizer"},
			{"kind":"slot_changed","player":"p1","slot":3},
			{"kind":"button_input","player":"p1","button":"Sneak","state":"Pressed","platform":"Desktop"},
			{"kind":"dimension_changed","player":"p1","from":"overworld","to":"nether"},
			{"kind":"player_left","player":"p1"}]}`, true},
		{"placement without block", TypeEvent, `{"type":"EVENT","protocol_version":"1.0","events":[
			{"kind":"block_placed","player":"p1","dimension":"overworld"}]}`, false},
		{"use without item", TypeEvent, `{"type":"EVENT","protocol_version":"1.0","events":[
			{"kind":"item_release_use","player":"p1"}]}`, false},
		{"unknown kind", TypeEvent, `{"type":"EVENT","protocol_version":"1.0","events":[
			{"kind":"jump","player":"p1"}]}`, false},
		{"bad button state", TypeEvent, `{"type":"EVENT","protocol_version":"1.0","events":[
			{"kind":"button_input","player":"p1","button":"Sneak","state":"Held"}]}`, false},
		{"ack", TypeAck, `{"type":"ACK","protocol_version":"1.0","batch_id":4,"failed":[{"index":0,"code":"E_OUT_OF_RANGE"}]}`, true},
		{"ack bad code", TypeAck, `{"type":"ACK","protocol_version":"1.0","batch_id":4,"failed":[{"index":0,"code":"oops"}]}`, false},
		{"ack zero batch", TypeAck, `{"type":"ACK","protocol_version":"1.0","batch_id":0}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.typ, []byte(tt.raw))
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateUnknownType(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Validate(TypeCommands, []byte(`{}`)); err == nil {
		t.Error("outbound types have no inbound schema")
	}
	if err := v.Validate(TypeState, []byte(`{`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestDecode(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatal(err)
	}
	raw := []byte(`{"type":"EVENT","protocol_version":"1.0","events":[
		{"kind":"slot_changed","player":"p1","slot":0},
		{"kind":"button_input","player":"p1","button":"Sneak","state":"Released","flying":true}]}`)
	var msg EventMsg
	if err := v.Decode(TypeEvent, raw, &msg); err != nil {
		t.Fatal(err)
	}
	if len(msg.Events) != 2 {
		t.Fatalf("events = %d, want 2", len(msg.Events))
	}
	if msg.Events[0].Slot == nil || *msg.Events[0].Slot != 0 {
		t.Errorf("slot = %v, want explicit 0", msg.Events[0].Slot)
	}
	if !msg.Events[1].Flying || msg.Events[1].State != "Released" {
		t.Errorf("button event = %+v", msg.Events[1])
	}
}

func TestCommandsEncoding(t *testing.T) {
	slot := 2
	msg := CommandsMsg{
		Type:            TypeCommands,
		ProtocolVersion: Version,
		BatchID:         7,
		Tick:            40,
		Ops: []Op{
			{Op: OpFill, Dimension: "overworld", Min: &[3]int{10, 65, 10}, Max: &[3]int{12, 66, 12}, Material: &Material{ID: "minecraft:stone"}},
			{Op: OpSetItem, Player: "p1", Slot: &slot, Item: &Item{}},
			{Op: OpActionBar, Player: "p1", Text: "§l2 1 2"},
		},
	}
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Ops []map[string]any `json:"ops"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatal(err)
	}
	if _, ok := doc.Ops[0]["pos"]; ok {
		t.Error("fill op should omit pos")
	}
	if _, ok := doc.Ops[1]["slot"]; !ok {
		t.Error("set_item op must carry slot 0..8 even when zero-valued")
	}
	if doc.Ops[2]["text"] != "§l2 1 2" {
		t.Errorf("text = %v", doc.Ops[2]["text"])
	}
}
