package dynamic_test

import (
	"encoding/json"
	"testing"

	"github.com/protocolbuffers/protoscope"
	"github.com/stretchr/testify/require"

	"github.com/slientgoat/prost-reflect/desc"
	"github.com/slientgoat/prost-reflect/dynamic"
	"github.com/slientgoat/prost-reflect/internal/testprotos"
)

// widgetsSource exercises the proto3 field shapes: scalars of every kind,
// repeated fields both packed and unpacked, nested and recursive messages,
// maps, enums, a oneof, and an explicitly optional field.
const widgetsSource = `
	syntax = "proto3";
	package testdata;

	enum Hue {
		HUE_UNSPECIFIED = 0;
		RED = 1;
		GREEN = 2;
		BLUE = 3;
	}

	message Widget {
		int32 count = 1;
		string label = 2;
		repeated int32 measurements = 3;
		repeated string tags = 4;
		Widget child = 5;
		map<string, int32> attributes = 6;
		map<int32, Widget> parts = 7;
		Hue hue = 8;
		bytes payload = 9;
		optional string note = 10;
		oneof contents {
			string text = 11;
			int64 number = 12;
			Widget nested = 13;
		}
		uint32 size32 = 14;
		uint64 size64 = 15;
		sint32 delta32 = 16;
		sint64 delta64 = 17;
		fixed32 exact32 = 18;
		fixed64 exact64 = 19;
		sfixed32 signed32 = 20;
		sfixed64 signed64 = 21;
		float ratio = 22;
		double precise = 23;
		bool ready = 24;
		repeated Hue hues = 25;
		repeated int32 unpacked = 26 [packed = false];
	}

	message Sample {
		int32 foo_bar = 1;
		string baz_qux = 2;
		map<int64, string> by_id = 3;
		map<bool, int32> flags = 4;
		map<uint32, string> slots = 5;
		repeated double readings = 6;
	}
`

// ordersSource covers the proto2 shapes the proto3 file cannot: required
// fields, declared defaults, groups, and extension ranges.
const ordersSource = `
	syntax = "proto2";
	package testdata;

	message Order {
		required string id = 1;
		optional int32 quantity = 2 [default = 7];
		optional string status = 3 [default = "new"];
		optional sint32 adjustment = 4;
		repeated group Item = 5 {
			optional string sku = 1;
			optional int32 count = 2;
		}
		optional group Audit = 6 {
			optional string note = 1;
		}
		optional bytes stamp = 7 [default = "\001\002"];
		extensions 100 to 200;
	}

	extend Order {
		optional string origin = 100;
		repeated int32 ratings = 101;
	}

	message Carrier {
		optional string name = 1;
		extend Order {
			optional Carrier carrier = 110;
		}
	}
`

// moreOrdersSource declares an extension in a separate file so tests can
// tell apart per-file and transitive registration.
const moreOrdersSource = `
	syntax = "proto2";
	package testdata;

	import "test/orders.proto";

	extend Order {
		optional double weight = 120;
	}
`

// envelopeSource pulls in the well-known types.
const envelopeSource = `
	syntax = "proto3";
	package testdata;

	import "google/protobuf/any.proto";
	import "google/protobuf/duration.proto";
	import "google/protobuf/empty.proto";
	import "google/protobuf/field_mask.proto";
	import "google/protobuf/struct.proto";
	import "google/protobuf/timestamp.proto";
	import "google/protobuf/wrappers.proto";

	message Envelope {
		google.protobuf.Duration ttl = 1;
		google.protobuf.Timestamp created_at = 2;
		google.protobuf.Any body = 3;
		google.protobuf.Struct details = 4;
		google.protobuf.Value extra = 5;
		google.protobuf.ListValue items = 6;
		google.protobuf.FieldMask mask = 7;
		google.protobuf.Empty nothing = 8;
		google.protobuf.Int64Value big = 9;
		google.protobuf.StringValue name = 10;
		google.protobuf.BoolValue flag = 11;
		google.protobuf.BytesValue blob = 12;
		google.protobuf.DoubleValue score = 13;
		repeated google.protobuf.Value values = 14;
	}
`

func buildTestPool(t testing.TB) *desc.Pool {
	t.Helper()
	return testprotos.BuildPool(t, map[string]string{
		"test/widgets.proto":     widgetsSource,
		"test/orders.proto":      ordersSource,
		"test/more_orders.proto": moreOrdersSource,
		"test/envelope.proto":    envelopeSource,
	}, "test/widgets.proto", "test/orders.proto", "test/more_orders.proto", "test/envelope.proto")
}

func newTestMessage(t testing.TB, pool *desc.Pool, fqn string) *dynamic.Message {
	t.Helper()
	md := pool.FindMessage(fqn)
	require.NotNil(t, md, "message %s not found", fqn)
	return dynamic.NewMessage(md)
}

// wireBytes assembles binary wire data from protoscope text.
func wireBytes(t testing.TB, src string) []byte {
	t.Helper()
	b, err := protoscope.NewScanner(src).Exec()
	require.NoError(t, err)
	return b
}

// jsonTree parses JSON into generic Go values so tests can compare document
// shape without caring about member order.
func jsonTree(t testing.TB, js []byte) interface{} {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal(js, &v))
	return v
}
