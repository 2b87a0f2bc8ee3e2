// Package hive supplies the optional schema-catalog side effect
// (pkg/sink.HiveService): a gRPC-backed Client and a Noop stand-in for
// hive.integration=false (spec.md §4.1, §4.6, §6).
package hive

import (
	"context"
	"fmt"

	"github.com/gogo/status"
	"google.golang.org/grpc/codes"

	"github.com/nimbusdata/hdfssink/pkg/ingest"
)

// Client talks to a schema-catalog service over gRPC. The wire methods are
// injected (rather than generated from a .proto) so this package carries
// no codegen step; production wiring passes grpc.ClientConn.Invoke bound
// to the catalog's three RPCs.
type Client struct {
	invoke func(ctx context.Context, method string, req, resp interface{}) error
}

// NewClient wraps a gRPC connection's Invoke method. method names follow
// the catalog service's RPC names (CreateHiveTable, AlterHiveSchema,
// AddHivePartition) under the nimbusdata.hive.v1.Catalog service.
func NewClient(invoke func(ctx context.Context, method string, req, resp interface{}) error) *Client {
	return &Client{invoke: invoke}
}

type createTableRequest struct {
	SchemaName string               `json:"schema_name"`
	Version    int                  `json:"version"`
	Fields     []ingest.SchemaField `json:"fields"`
}

type alterSchemaRequest struct {
	SchemaName string               `json:"schema_name"`
	Version    int                  `json:"version"`
	Fields     []ingest.SchemaField `json:"fields"`
}

type addPartitionRequest struct {
	SchemaName string `json:"schema_name"`
	Topic      string `json:"topic"`
	Partition  int32  `json:"partition"`
	Offset     int64  `json:"offset"`
}

func (c *Client) CreateHiveTable(schema *ingest.Schema) error {
	req := createTableRequest{SchemaName: schema.Name, Version: schema.Version, Fields: schema.Fields}
	if err := c.invoke(context.Background(), "/nimbusdata.hive.v1.Catalog/CreateHiveTable", req, &struct{}{}); err != nil {
		return classify("creating hive table", schema.Name, err)
	}
	return nil
}

func (c *Client) AlterHiveSchema(schema *ingest.Schema) error {
	req := alterSchemaRequest{SchemaName: schema.Name, Version: schema.Version, Fields: schema.Fields}
	if err := c.invoke(context.Background(), "/nimbusdata.hive.v1.Catalog/AlterHiveSchema", req, &struct{}{}); err != nil {
		return classify("altering hive schema", schema.Name, err)
	}
	return nil
}

func (c *Client) AddHivePartition(rec *ingest.Record, schema *ingest.Schema) error {
	name := ""
	if schema != nil {
		name = schema.Name
	}
	req := addPartitionRequest{SchemaName: name, Topic: rec.Topic, Partition: rec.Partition, Offset: rec.Offset}
	if err := c.invoke(context.Background(), "/nimbusdata.hive.v1.Catalog/AddHivePartition", req, &struct{}{}); err != nil {
		return classify("adding hive partition", rec.Topic, err)
	}
	return nil
}

// classify turns a gRPC status error into a fatal, descriptively-wrapped
// error; the sink core never retries a catalog failure (spec.md §7).
// AlreadyExists is the exception: it is treated as success and yields nil.
func classify(op, subject string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("hive: %s %q: %w", op, subject, err)
	}
	switch st.Code() {
	case codes.AlreadyExists:
		return nil
	case codes.Unavailable:
		return fmt.Errorf("hive: catalog unavailable %s %q: %w", op, subject, err)
	default:
		return fmt.Errorf("hive: %s %q: %s: %w", op, subject, st.Code(), err)
	}
}

// Noop satisfies pkg/sink.HiveService without a catalog side effect, used
// when hive.integration is disabled (spec.md §6).
type Noop struct{}

func (Noop) CreateHiveTable(*ingest.Schema) error                  { return nil }
func (Noop) AlterHiveSchema(*ingest.Schema) error                  { return nil }
func (Noop) AddHivePartition(*ingest.Record, *ingest.Schema) error { return nil }
