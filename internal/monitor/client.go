package monitor

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/suenchunyu/wordcount/internal/model"
	"github.com/suenchunyu/wordcount/internal/worker"
)

const reportTimeout = 3 * time.Second

// Client reports mapper status to a remote Monitor.
type Client struct {
	conn   *grpc.ClientConn
	client MonitorServiceClient
}

var _ worker.Reporter = new(Client)

// Dial connects to the monitor at target, e.g. "127.0.0.1:7070" or
// "unix:///var/tmp/wordcount-monitor-0".
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithInsecure()}
	}
	conn, err := grpc.Dial(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn:   conn,
		client: NewMonitorServiceClient(conn),
	}, nil
}

func (c *Client) Report(ctx context.Context, status model.Status) error {
	request, err := StatusToStruct(status)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, reportTimeout)
	defer cancel()

	_, err = c.client.Report(ctx, request)
	return err
}

func (c *Client) Close() error {
	return c.conn.Close()
}
