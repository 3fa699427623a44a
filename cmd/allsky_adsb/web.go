package main

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"

	"allsky.watch/lib/overlay"
	"allsky.watch/lib/skypos"
)

const wsWriteTimeout = 5 * time.Second

type (
	// Kicker asks for an aircraft list right now
	Kicker interface {
		Kick() bool
	}

	AllSkyWeb struct {
		Addr string

		serveMux   http.ServeMux
		httpServer http.Server

		latest         *overlay.Latest
		kicker         Kicker
		originPatterns []string

		listening atomic.Bool
		clients   atomic.Int64

		log zerolog.Logger
	}

	aircraftResponse struct {
		Updated  time.Time            `json:"updated"`
		Stale    bool                 `json:"stale"`
		Count    int                  `json:"count"`
		Aircraft []skypos.SkyPosition `json:"aircraft"`
	}
)

func NewAllSkyWeb(addr string, latest *overlay.Latest, kicker Kicker, originPatterns []string) *AllSkyWeb {
	bw := &AllSkyWeb{
		Addr:           addr,
		latest:         latest,
		kicker:         kicker,
		originPatterns: originPatterns,
		log:            log.With().Str("section", "web").Logger(),
	}
	bw.serveMux.HandleFunc("/", bw.indexPage)
	bw.serveMux.HandleFunc("/aircraft", bw.serveAircraft)
	bw.serveMux.HandleFunc("/kick", bw.serveKick)
	bw.serveMux.HandleFunc("/ws", bw.serveWs)

	// no write timeout, websockets are long lived
	bw.httpServer = http.Server{
		Addr:              addr,
		Handler:           bw.logRequest(&bw.serveMux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return bw
}

func (bw *AllSkyWeb) listenAndServe(exitChan chan bool) {
	bw.log.Info().Str("HttpAddr", bw.Addr).Msg("HTTP Listening on")
	bw.listening.Store(true)
	err := bw.httpServer.ListenAndServe()
	bw.listening.Store(false)
	if nil != err && err != http.ErrServerClosed {
		bw.log.Error().Err(err).Msg("web server error")
	}
	exitChan <- true
}

func (bw *AllSkyWeb) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := bw.httpServer.Shutdown(ctx); nil != err {
		bw.log.Error().Err(err).Msg("failed to shutdown web server")
	}
}

func (bw *AllSkyWeb) logRequest(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bw.log.Debug().Str("Remote", r.RemoteAddr).Str("Request", r.RequestURI).Msg("Web RQ")
		handler.ServeHTTP(w, r)
	})
}

func (bw *AllSkyWeb) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bw.serveMux.ServeHTTP(w, r)
}

func (bw *AllSkyWeb) indexPage(w http.ResponseWriter, r *http.Request) {
	if "/" != r.URL.Path {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(200)
	_, _ = w.Write([]byte("AllSky ADS-B Overlay"))
}

func (bw *AllSkyWeb) currentJson() ([]byte, error) {
	aircraft := bw.latest.Aircraft()
	json := jsoniter.ConfigFastest
	return json.Marshal(aircraftResponse{
		Updated:  bw.latest.Updated(),
		Stale:    bw.latest.Stale(),
		Count:    len(aircraft),
		Aircraft: aircraft,
	})
}

func (bw *AllSkyWeb) listJson(aircraft []skypos.SkyPosition) ([]byte, error) {
	json := jsoniter.ConfigFastest
	return json.Marshal(aircraftResponse{
		Updated:  bw.latest.Updated(),
		Count:    len(aircraft),
		Aircraft: aircraft,
	})
}

func (bw *AllSkyWeb) serveAircraft(w http.ResponseWriter, r *http.Request) {
	buf, err := bw.currentJson()
	if nil != err {
		bw.log.Error().Err(err).Msg("Failed to encode aircraft")
		w.WriteHeader(500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(buf)
}

func (bw *AllSkyWeb) serveKick(w http.ResponseWriter, r *http.Request) {
	if http.MethodPost != r.Method {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !bw.kicker.Kick() {
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (bw *AllSkyWeb) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  bw.originPatterns,
		CompressionMode: websocket.CompressionContextTakeover,
	})
	if nil != err {
		bw.log.Error().Err(err).Msg("Failed to setup websocket connection")
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	bw.clients.Add(1)
	defer bw.clients.Add(-1)
	clientLog := bw.log.With().Str("client", r.RemoteAddr).Logger()
	clientLog.Debug().Msg("New /ws client")

	// we never expect anything from the client, CloseRead handles pings and close frames
	ctx := conn.CloseRead(r.Context())
	updates, unsubscribe := bw.latest.Subscribe()
	defer unsubscribe()

	buf, err := bw.currentJson()
	if nil == err {
		err = bw.send(ctx, conn, buf)
	}
	for nil == err {
		select {
		case <-ctx.Done():
			clientLog.Debug().Msg("/ws client gone")
			return
		case aircraft, ok := <-updates:
			if !ok {
				return
			}
			if buf, err = bw.listJson(aircraft); nil == err {
				err = bw.send(ctx, conn, buf)
			}
		}
	}
	if -1 == websocket.CloseStatus(err) && nil == ctx.Err() {
		clientLog.Error().Err(err).Msg("Failed to send to websocket client")
	}
}

func (bw *AllSkyWeb) send(ctx context.Context, conn *websocket.Conn, buf []byte) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, buf)
}

func (bw *AllSkyWeb) HealthCheck() bool {
	return bw.listening.Load()
}

func (bw *AllSkyWeb) HealthCheckName() string {
	return "AllSky Web"
}
