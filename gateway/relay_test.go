package gateway

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/campusai/campus/pkg/upstream"
)

// endlessUpstream streams keep-alive frames until its request context ends.
type endlessUpstream struct {
	server *httptest.Server
	done   chan struct{}
}

func newEndlessUpstream() *endlessUpstream {
	u := &endlessUpstream{done: make(chan struct{})}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(u.done)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)

		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\n")
		flusher.Flush()

		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}))
	return u
}

var _ = Describe("relay cancellation", func() {
	var (
		tg      *testGateway
		endless *endlessUpstream
		addr    string
	)

	BeforeEach(func() {
		endless = newEndlessUpstream()
		tg = newTestGateway("sk-test", func(c *Config) {
			c.Upstream = upstream.New(upstream.Config{BaseURL: endless.server.URL, APIKey: "sk-test", Model: "test-model"})
		})

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		go func() { _ = tg.RunWithListener(listener) }()
		addr = listener.Addr().String()

		DeferCleanup(func() {
			tg.close()
			endless.server.CloseClientConnections()
			endless.server.Close()
		})
	})

	It("cancels the upstream request when the client disconnects", func() {
		conn, err := net.Dial("tcp", addr)
		Expect(err).NotTo(HaveOccurred())

		body := `{"messages":[{"role":"user","content":"hi"}]}`
		fmt.Fprintf(conn, "POST /functions/v1/ai-tutor HTTP/1.1\r\n"+
			"Host: campus.test\r\n"+
			"Authorization: Bearer %s\r\n"+
			"Content-Type: application/json\r\n"+
			"Content-Length: %d\r\n\r\n%s", tg.token, len(body), body)

		Expect(conn.SetReadDeadline(time.Now().Add(5 * time.Second))).To(Succeed())
		reader := bufio.NewReader(conn)
		status, err := reader.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(HavePrefix("HTTP/1.1 200"))
		for {
			line, err := reader.ReadString('\n')
			Expect(err).NotTo(HaveOccurred())
			if strings.HasPrefix(line, "data: ") {
				break
			}
		}

		Expect(conn.Close()).To(Succeed())

		Eventually(endless.done, 5*time.Second).Should(BeClosed())
		Eventually(tg.publisher.Events, 5*time.Second).Should(HaveLen(1))
		ev := tg.publisher.Events()[0]
		Expect(ev.Stream.Cancelled).To(BeTrue())
		Expect(ev.Stream.SawDone).To(BeFalse())
		Expect(ev.Stream.Deltas).To(Equal(1))
	})
})
