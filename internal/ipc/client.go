package ipc

import (
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// dialTimeout bounds how long a CLI invocation waits for the daemon socket.
const dialTimeout = 2 * time.Second

// Client is a JSON-RPC client for the daemon control socket.
type Client struct {
	conn *rpc.Client
}

// Dial connects to the daemon socket at path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon socket: %w", err)
	}
	return &Client{conn: jsonrpc.NewClient(conn)}, nil
}

// Close releases the socket connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) call(method string, req, resp any) error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("ipc client is not connected")
	}
	return c.conn.Call(ServiceName+"."+method, req, resp)
}

// Start asks the daemon to start its processing workflow.
func (c *Client) Start() (StartResponse, error) {
	var resp StartResponse
	err := c.call("Start", StartRequest{}, &resp)
	return resp, err
}

// Stop asks the daemon to stop its processing workflow.
func (c *Client) Stop() (StopResponse, error) {
	var resp StopResponse
	err := c.call("Stop", StopRequest{}, &resp)
	return resp, err
}

// Status reports daemon, queue, and dependency state.
func (c *Client) Status() (StatusResponse, error) {
	var resp StatusResponse
	err := c.call("Status", StatusRequest{}, &resp)
	return resp, err
}

// AddFile queues a media file for transcription.
func (c *Client) AddFile(path string) (AddFileResponse, error) {
	var resp AddFileResponse
	err := c.call("AddFile", AddFileRequest{Path: path}, &resp)
	return resp, err
}

// QueueList returns queue items, optionally filtered by status names.
func (c *Client) QueueList(statuses []string) (QueueListResponse, error) {
	var resp QueueListResponse
	err := c.call("QueueList", QueueListRequest{Statuses: statuses}, &resp)
	return resp, err
}

// QueueDescribe returns a single queue item by id.
func (c *Client) QueueDescribe(id int64) (QueueDescribeResponse, error) {
	var resp QueueDescribeResponse
	err := c.call("QueueDescribe", QueueDescribeRequest{ID: id}, &resp)
	return resp, err
}

// QueueClear removes every item from the queue.
func (c *Client) QueueClear() (QueueClearResponse, error) {
	var resp QueueClearResponse
	err := c.call("QueueClear", QueueClearRequest{}, &resp)
	return resp, err
}

// QueueClearCompleted removes completed items from the queue.
func (c *Client) QueueClearCompleted() (QueueClearCompletedResponse, error) {
	var resp QueueClearCompletedResponse
	err := c.call("QueueClearCompleted", QueueClearCompletedRequest{}, &resp)
	return resp, err
}

// QueueClearFailed removes failed items from the queue.
func (c *Client) QueueClearFailed() (QueueClearFailedResponse, error) {
	var resp QueueClearFailedResponse
	err := c.call("QueueClearFailed", QueueClearFailedRequest{}, &resp)
	return resp, err
}

// QueueReset returns stuck processing items to pending.
func (c *Client) QueueReset() (QueueResetResponse, error) {
	var resp QueueResetResponse
	err := c.call("QueueReset", QueueResetRequest{}, &resp)
	return resp, err
}

// QueueRetry re-queues failed or review items. Empty ids retries all of them.
func (c *Client) QueueRetry(ids []int64) (QueueRetryResponse, error) {
	var resp QueueRetryResponse
	err := c.call("QueueRetry", QueueRetryRequest{IDs: ids}, &resp)
	return resp, err
}

// QueueRemove deletes specific queue items by id.
func (c *Client) QueueRemove(ids []int64) (QueueRemoveResponse, error) {
	var resp QueueRemoveResponse
	err := c.call("QueueRemove", QueueRemoveRequest{IDs: ids}, &resp)
	return resp, err
}

// QueueHealth reports aggregate queue counts.
func (c *Client) QueueHealth() (QueueHealthResponse, error) {
	var resp QueueHealthResponse
	err := c.call("QueueHealth", QueueHealthRequest{}, &resp)
	return resp, err
}

// DatabaseHealth reports queue database integrity details.
func (c *Client) DatabaseHealth() (DatabaseHealthResponse, error) {
	var resp DatabaseHealthResponse
	err := c.call("DatabaseHealth", DatabaseHealthRequest{}, &resp)
	return resp, err
}

// TestNotification sends a test message through the configured notifier.
func (c *Client) TestNotification() (TestNotificationResponse, error) {
	var resp TestNotificationResponse
	err := c.call("TestNotification", TestNotificationRequest{}, &resp)
	return resp, err
}

// LogTail reads daemon log lines starting at the given offset.
func (c *Client) LogTail(req LogTailRequest) (LogTailResponse, error) {
	var resp LogTailResponse
	err := c.call("LogTail", req, &resp)
	return resp, err
}
