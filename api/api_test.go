package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory/dedup"
	"github.com/papercomputeco/recall/pkg/memory/engine"
	testutils "github.com/papercomputeco/recall/pkg/utils/test"
)

var _ = Describe("Server", func() {
	var (
		server   *Server
		store    *testutils.MockVectorDriver
		embedder *testutils.MockEmbedder
	)

	BeforeEach(func() {
		store = testutils.NewMockVectorDriver()
		embedder = testutils.NewMockEmbedder()
		embedder.Embeddings["I like tea"] = []float32{1, 0, 0}
		embedder.Embeddings["tea"] = []float32{1, 0, 0}
		embedder.Embeddings["Went hiking"] = []float32{0, 1, 0}

		eng, err := engine.New(engine.Config{
			Store:    store,
			Embedder: embedder,
			Dedup:    engine.DedupConfig{Enabled: true},
			Clock: func() time.Time {
				// A Sunday.
				return time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)
			},
			Logger: logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		server = NewServer(Config{ListenAddr: ":0"}, eng, logger.Nop())
	})

	do := func(method, target string, body any, user string) *http.Response {
		var r io.Reader
		if body != nil {
			b, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			r = bytes.NewReader(b)
		}

		req := httptest.NewRequest(method, target, r)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if user != "" {
			req.Header.Set(HeaderUser, user)
			req.Header.Set(HeaderProject, "home")
		}

		resp, err := server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decode := func(resp *http.Response, out any) {
		defer resp.Body.Close()
		Expect(json.NewDecoder(resp.Body).Decode(out)).To(Succeed())
	}

	add := func(content string, tags ...string) engine.AddResult {
		resp := do(http.MethodPost, "/v1/memories", engine.AddRequest{Content: content, Tags: tags}, "alice")
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		var result engine.AddResult
		decode(resp, &result)
		return result
	}

	Describe("GET /ping", func() {
		It("returns pong", func() {
			resp := do(http.MethodGet, "/ping", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body string
			decode(resp, &body)
			Expect(body).To(Equal("pong"))
		})
	})

	Describe("owner headers", func() {
		It("rejects requests without a user", func() {
			resp := do(http.MethodGet, "/v1/memories/search", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			var body ErrorResponse
			decode(resp, &body)
			Expect(body.Error).To(ContainSubstring("owner"))
		})
	})

	Describe("POST /v1/memories", func() {
		It("creates a memory", func() {
			result := add("I like tea", "drinks")
			Expect(result.ID).NotTo(BeEmpty())
			Expect(result.Action).To(Equal(dedup.ActionAdded))
			Expect(result.Duplicate).To(BeFalse())
		})

		It("returns 200 when a duplicate is skipped", func() {
			first := add("I like tea")

			resp := do(http.MethodPost, "/v1/memories", engine.AddRequest{Content: "I like tea"}, "alice")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result engine.AddResult
			decode(resp, &result)
			Expect(result.Action).To(Equal(dedup.ActionSkipped))
			Expect(result.ID).To(Equal(first.ID))
			Expect(result.Duplicate).To(BeTrue())
		})

		It("rejects empty content", func() {
			resp := do(http.MethodPost, "/v1/memories", engine.AddRequest{Content: "  "}, "alice")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects an unknown duplicate policy", func() {
			resp := do(http.MethodPost, "/v1/memories",
				engine.AddRequest{Content: "I like tea", Policy: "replace"}, "alice")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/v1/memories", bytes.NewBufferString("{"))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(HeaderUser, "alice")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns 503 when the embedder is down", func() {
			embedder.FailAll = true
			resp := do(http.MethodPost, "/v1/memories", engine.AddRequest{Content: "I like tea"}, "alice")
			Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		})

		It("hides storage failures behind a 500", func() {
			store.FailInsert = true
			resp := do(http.MethodPost, "/v1/memories",
				engine.AddRequest{Content: "Went hiking", SkipDuplicateCheck: true}, "alice")
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))

			var body ErrorResponse
			decode(resp, &body)
			Expect(body.Error).To(Equal("storage failure"))
		})
	})

	Describe("GET /v1/memories/search", func() {
		BeforeEach(func() {
			add("I like tea", "drinks")
			add("Went hiking", "outdoors")
		})

		It("ranks by similarity", func() {
			resp := do(http.MethodGet, "/v1/memories/search?query=tea", nil, "alice")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body engine.SearchResponse
			decode(resp, &body)
			Expect(body.Count).To(Equal(2))
			Expect(body.Results[0].Content).To(Equal("I like tea"))
			Expect(body.Results[0].Score).NotTo(BeNil())
		})

		It("filters by tags and applies the threshold", func() {
			resp := do(http.MethodGet, "/v1/memories/search?query=tea&tags=outdoors&threshold=0.9", nil, "alice")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body engine.SearchResponse
			decode(resp, &body)
			Expect(body.Count).To(Equal(0))
		})

		It("lists newest first without a query", func() {
			resp := do(http.MethodGet, "/v1/memories/search?limit=1", nil, "alice")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body engine.SearchResponse
			decode(resp, &body)
			Expect(body.Count).To(Equal(1))
			Expect(body.Results[0].Score).To(BeNil())
		})

		It("does not leak another owner's memories", func() {
			resp := do(http.MethodGet, "/v1/memories/search?query=tea", nil, "bob")
			var body engine.SearchResponse
			decode(resp, &body)
			Expect(body.Count).To(Equal(0))
		})

		It("rejects a bad threshold", func() {
			resp := do(http.MethodGet, "/v1/memories/search?threshold=high", nil, "alice")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			resp = do(http.MethodGet, "/v1/memories/search?threshold=1.5", nil, "alice")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a bad limit", func() {
			resp := do(http.MethodGet, "/v1/memories/search?limit=0", nil, "alice")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("convenience routes", func() {
		BeforeEach(func() {
			add("I like tea", "drinks", "morning")
			add("Went hiking", "outdoors")
		})

		It("searches by tags", func() {
			resp := do(http.MethodGet, "/v1/memories/tags/drinks,morning?match_all=true", nil, "alice")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body engine.SearchResponse
			decode(resp, &body)
			Expect(body.Count).To(Equal(1))
			Expect(body.Results[0].Matched.Tags).To(ConsistOf("drinks", "morning"))
		})

		It("searches by a temporal expression", func() {
			resp := do(http.MethodGet, "/v1/memories/temporal/weekends", nil, "alice")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body engine.SearchResponse
			decode(resp, &body)
			Expect(body.Count).To(Equal(2))
			Expect(body.TemporalIgnored).To(BeFalse())
		})

		It("flags an unrecognized temporal expression", func() {
			resp := do(http.MethodGet, "/v1/memories/temporal/someday", nil, "alice")
			var body engine.SearchResponse
			decode(resp, &body)
			Expect(body.TemporalIgnored).To(BeTrue())
		})

		It("searches by topic and people", func() {
			resp := do(http.MethodGet, "/v1/memories/topic/work", nil, "alice")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			resp = do(http.MethodGet, "/v1/memories/people/sam", nil, "alice")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("GET and DELETE /v1/memories/:id", func() {
		It("gets and deletes a memory", func() {
			created := add("I like tea")

			resp := do(http.MethodGet, "/v1/memories/"+created.ID, nil, "alice")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var got engine.Result
			decode(resp, &got)
			Expect(got.Content).To(Equal("I like tea"))
			Expect(got.Temporal.IsWeekend).To(BeTrue())

			resp = do(http.MethodDelete, "/v1/memories/"+created.ID, nil, "alice")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			resp = do(http.MethodGet, "/v1/memories/"+created.ID, nil, "alice")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("hides other owners' memories", func() {
			created := add("I like tea")

			resp := do(http.MethodGet, "/v1/memories/"+created.ID, nil, "bob")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

			resp = do(http.MethodDelete, "/v1/memories/"+created.ID, nil, "bob")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("MCP mount", func() {
		It("forwards /mcp to the configured handler", func() {
			var hit bool
			mcp := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				hit = true
				w.WriteHeader(http.StatusAccepted)
			})
			s := NewServer(Config{MCPHandler: mcp}, nil, logger.Nop())

			resp, err := s.app.Test(httptest.NewRequest(http.MethodPost, "/mcp", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusAccepted))
			Expect(hit).To(BeTrue())
		})
	})
})
