package audit

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"openlink/internal/protocol"
)

func setupTestSink(t *testing.T) *Sink {
	t.Helper()

	host := os.Getenv("CLICKHOUSE_HOST")
	if host == "" {
		t.Skip("CLICKHOUSE_HOST not set, skipping audit sink integration test")
	}

	ctx := context.Background()
	sink, err := Open(ctx, Config{
		Host:     host,
		Port:     9000,
		User:     os.Getenv("CLICKHOUSE_USER"),
		Password: os.Getenv("CLICKHOUSE_PASSWORD"),
		Database: os.Getenv("CLICKHOUSE_DB"),
	})
	if err != nil {
		t.Skipf("could not connect to clickhouse: %v", err)
	}
	t.Cleanup(func() { _ = sink.Close() })
	return sink
}

func TestRecordEnvelopeThenRecent(t *testing.T) {
	sink := setupTestSink(t)
	ctx := context.Background()

	env := protocol.OpenLinkEnvelope{
		Id:        uuid.New(),
		Routing:   protocol.Routing{Source: protocol.AddressEndpoint("demonetwork", "ADDR1"), Destination: protocol.ServerEndpoint("demonetwork")},
		Payload:   protocol.NewAcarsPayload(protocol.AcarsEnvelope{}),
		Token:     "",
	}

	if err := sink.RecordEnvelope(ctx, "demonetwork", env); err != nil {
		t.Fatalf("record envelope: %v", err)
	}

	records, err := sink.Recent(ctx, Query{Network: "demonetwork", Limit: 10})
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("expected at least one record")
	}
}
