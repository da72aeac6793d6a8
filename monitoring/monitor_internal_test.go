package monitoring

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/memcheck/checker"
)

func sampleResult() checker.Result {
	present := func(v byte) checker.MemoryByte {
		return checker.MemoryByte{Value: v, Present: true}
	}

	return checker.Result{
		Entries: 10,
		Inconsistencies: []checker.Inconsistency{
			{
				Position: 2,
				Line:     4,
				Address:  0x10,
				Value:    0xaabbccdd,
				LogBytes: [4]byte{0xaa, 0xbb, 0xcc, 0xdd},
				Memory: [4]checker.MemoryByte{
					present(0xaa), present(0xbb), {}, present(0xdd),
				},
			},
			{Position: 5, Address: 0x20},
			{Position: 7, Address: 0x30},
		},
	}
}

var _ = Describe("Monitor", func() {
	var (
		m       *Monitor
		handler http.Handler
	)

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

		return rec
	}

	BeforeEach(func() {
		m = NewMonitor()
		m.RegisterResult("image.data", "out.log", sampleResult())
		handler = m.router()
	})

	It("should fall back to a random port for privileged ports", func() {
		Expect(m.WithPortNumber(80).portNumber).To(Equal(0))
		Expect(m.WithPortNumber(1000).portNumber).To(Equal(0))
		Expect(m.WithPortNumber(1023).portNumber).To(Equal(0))
		Expect(m.WithPortNumber(70000).portNumber).To(Equal(0))
		Expect(m.WithPortNumber(1024).portNumber).To(Equal(1024))
		Expect(m.WithPortNumber(8080).portNumber).To(Equal(8080))
	})

	It("should listen on every port it accepts", func() {
		l, err := net.Listen("tcp", ":0")
		Expect(err).ToNot(HaveOccurred())
		port := l.Addr().(*net.TCPAddr).Port
		Expect(l.Close()).To(Succeed())

		Expect(m.WithPortNumber(port).portNumber).To(Equal(port))

		url, err := m.StartServer()
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(m.Close)

		Expect(url).To(Equal(fmt.Sprintf("http://localhost:%d", port)))
	})

	It("should serve the summary", func() {
		rec := get("/api/summary")

		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp summaryRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp).To(Equal(summaryRsp{
			DataFile:        "image.data",
			LogFile:         "out.log",
			Entries:         10,
			Inconsistencies: 3,
		}))
	})

	It("should list inconsistencies", func() {
		rec := get("/api/inconsistencies")

		var rsp inconsistencyListRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Total).To(Equal(3))
		Expect(rsp.Inconsistencies).To(HaveLen(3))

		first := rsp.Inconsistencies[0]
		Expect(first.Address).To(Equal("0x10"))
		Expect(first.LogBytes).To(Equal([]int{0xaa, 0xbb, 0xcc, 0xdd}))
		Expect(first.Memory).To(HaveLen(4))
		Expect(first.Memory[2]).To(BeNil())
		Expect(*first.Memory[3]).To(Equal(0xdd))
	})

	It("should page inconsistencies", func() {
		rec := get("/api/inconsistencies?limit=1&offset=1")

		var rsp inconsistencyListRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Total).To(Equal(3))
		Expect(rsp.Inconsistencies).To(HaveLen(1))
		Expect(rsp.Inconsistencies[0].Position).To(Equal(5))
	})

	It("should return an empty page past the end", func() {
		rec := get("/api/inconsistencies?offset=10")

		var rsp inconsistencyListRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Inconsistencies).To(BeEmpty())
	})

	It("should reject bad page parameters", func() {
		rec := get("/api/inconsistencies?limit=abc")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should serialize one inconsistency", func() {
		rec := get("/api/inconsistency/2")

		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp struct {
			Root string                     `json:"r"`
			Dict map[string]json.RawMessage `json:"dict"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Root).To(Equal("0"))
		Expect(rsp.Dict).ToNot(BeEmpty())
		Expect(rec.Body.String()).To(ContainSubstring(`"Address":"`))
		Expect(rec.Body.String()).To(ContainSubstring(`"v":"0x10"`))
		Expect(rec.Body.String()).To(ContainSubstring(`"LogBytes":"`))
	})

	It("should return 404 for consistent entries", func() {
		rec := get("/api/inconsistency/3")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should serve the result page", func() {
		rec := get("/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})

	It("should serve over a real listener", func() {
		url, err := m.WithPortNumber(0).StartServer()
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(m.Close)

		rsp, err := http.Get(url + "/api/summary")
		Expect(err).ToNot(HaveOccurred())
		defer rsp.Body.Close()

		body, err := io.ReadAll(rsp.Body)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(body)).To(ContainSubstring(`"entries":10`))
	})
})
