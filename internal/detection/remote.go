package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/url"
	"sync"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ErrNotConnected is returned by a closed RemoteDetector.
var ErrNotConnected = errors.New("remote detector is closed")

// RemoteOptions configures a RemoteDetector.
type RemoteOptions struct {
	// URL is the websocket endpoint, e.g. ws://localhost:8080/ws.
	URL string

	// Timeout bounds one round trip. Zero means no deadline beyond ctx.
	Timeout time.Duration

	// JPEGQuality is used to encode frames. Zero means 90.
	JPEGQuality int

	Logger logrus.FieldLogger
}

// remoteResult is one element of the server's JSON reply.
type remoteResult struct {
	ClassID    int        `json:"class_id"`
	Confidence float64    `json:"confidence"`
	Box        [4]float64 `json:"box"`
}

// RemoteDetector sends each image to an inference server over a websocket.
//
// Every call writes the image as one JPEG binary message and reads one JSON
// text message back. Calls are serialized on a single connection which is
// dialed on first use and redialed after any I/O error.
type RemoteDetector struct {
	opts   RemoteOptions
	dialer *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// NewRemoteDetector validates the URL. No connection is made until the
// first Detect.
func NewRemoteDetector(opts RemoteOptions) (*RemoteDetector, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid remote detector URL %q: %w", opts.URL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid remote detector URL %q: scheme must be ws or wss", opts.URL)
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 90
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	return &RemoteDetector{
		opts:   opts,
		dialer: websocket.DefaultDialer,
	}, nil
}

// Detect sends img and returns the server's detections. Boxes are truncated
// to whole pixels.
func (d *RemoteDetector) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	var buf bytes.Buffer
	if err := imgio.JPEGEncoder(d.opts.JPEGQuality)(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrNotConnected
	}

	conn, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}

	message, err := d.roundTrip(ctx, conn, buf.Bytes())
	if err != nil {
		d.drop()
		return nil, err
	}

	var results []remoteResult
	if err := json.Unmarshal(message, &results); err != nil {
		return nil, fmt.Errorf("invalid reply from detector server: %w", err)
	}

	dets := make([]Detection, 0, len(results))
	for _, r := range results {
		dets = append(dets, Detection{
			ClassID:    r.ClassID,
			Confidence: r.Confidence,
			Box: Box{
				X1: int(r.Box[0]),
				Y1: int(r.Box[1]),
				X2: int(r.Box[2]),
				Y2: int(r.Box[3]),
			},
		})
	}
	return dets, nil
}

// connect returns the live connection, dialing if there is none. d.mu must
// be held.
func (d *RemoteDetector) connect(ctx context.Context) (*websocket.Conn, error) {
	if d.conn != nil {
		return d.conn, nil
	}

	d.opts.Logger.WithField("url", d.opts.URL).Debug("connecting to detector server")
	conn, _, err := d.dialer.DialContext(ctx, d.opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to detector server %s: %w", d.opts.URL, err)
	}
	d.conn = conn
	return conn, nil
}

func (d *RemoteDetector) roundTrip(ctx context.Context, conn *websocket.Conn, frame []byte) ([]byte, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return nil, err
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	// Unblock the read if ctx is cancelled without a deadline.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return nil, fmt.Errorf("failed to send frame: %w", err)
	}

	_, message, err := conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to read detections: %w", err)
	}
	return message, nil
}

// drop discards a broken connection. d.mu must be held.
func (d *RemoteDetector) drop() {
	if d.conn == nil {
		return
	}
	d.opts.Logger.Warn("connection to detector server lost")
	_ = d.conn.Close()
	d.conn = nil
}

// Close sends a close frame and shuts the connection down.
func (d *RemoteDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	if d.conn == nil {
		return nil
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = d.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	err := d.conn.Close()
	d.conn = nil
	return err
}
