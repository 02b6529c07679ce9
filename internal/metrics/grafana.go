package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/drakos74/deep-cca/internal/server"
	"github.com/rs/zerolog/log"
)

// TagQuery lists the values of one tag.
type TagQuery func() []string

// TargetQuery resolves one named curve, parameterized by the target data.
type TargetQuery func(data map[string]interface{}) Series

// AnnotationQueryFn resolves the annotation instances of one named query.
type AnnotationQueryFn func(query string) []AnnotationInstance

// Server exposes registered training curves as a json datasource,
// so loss and correlation series can be plotted straight from a fit run.
type Server struct {
	name        string
	port        int
	tags        map[string]TagQuery
	targets     map[string]TargetQuery
	annotations AnnotationQueryFn
}

func NewServer(name string, port int) *Server {
	return &Server{
		name:    name,
		port:    port,
		tags:    make(map[string]TagQuery),
		targets: make(map[string]TargetQuery),
	}
}

func (s *Server) Tag(tag string, query TagQuery) *Server {
	s.tags[tag] = query
	return s
}

func (s *Server) Target(target string, query TargetQuery) *Server {
	s.targets[target] = query
	return s
}

func (s *Server) Annotations(query AnnotationQueryFn) *Server {
	s.annotations = query
	return s
}

// Run starts the datasource server in the background.
func (s *Server) Run() {
	srv := server.NewServer(s.name, s.port).
		Add(server.Live()).
		AddRoute(server.POST, server.Data, "search", s.search).
		AddRoute(server.POST, server.Data, "tag-keys", s.keys).
		AddRoute(server.POST, server.Data, "tag-values", s.values).
		AddRoute(server.POST, server.Data, "annotations", s.annotate).
		AddRoute(server.POST, server.Data, "query", s.query)
	go func() {
		err := srv.Run()
		if err != nil {
			panic(err.Error())
		}
	}()
}

func (s *Server) query(r *http.Request) (payload []byte, code int, err error) {
	var query Query
	err = server.ReadJson(r, false, &query)
	if err != nil {
		return payload, code, err
	}

	data := make([]Series, 0)
	for _, target := range query.Targets {
		t, ok := s.targets[target.Target]
		if !ok {
			log.Error().Str("target", target.Target).Msg("unknown target")
			continue
		}
		data = append(data, t(target.Data))
	}

	payload, err = json.Marshal(data)
	return
}

func (s *Server) annotate(r *http.Request) (payload []byte, code int, err error) {
	var query AnnotationQuery
	err = server.ReadJson(r, false, &query)
	if err != nil {
		return payload, code, err
	}

	annotations := make([]AnnotationInstance, 0)
	if query.Annotation.Enable && s.annotations != nil {
		annotations = append(annotations, s.annotations(query.Annotation.Query)...)
	}

	payload, err = json.Marshal(annotations)
	return payload, code, err
}

func (s *Server) keys(_ *http.Request) (payload []byte, code int, err error) {
	tags := make([]Tag, len(s.tags))

	i := 0
	for k := range s.tags {
		tags[i] = Tag{
			Key:  k,
			Type: "string",
			Text: k,
		}
		i++
	}
	payload, err = json.Marshal(tags)
	return payload, code, err
}

func (s *Server) values(r *http.Request) (payload []byte, code int, err error) {
	var tag Tag
	err = server.ReadJson(r, false, &tag)
	if err != nil {
		return payload, code, err
	}

	tq, ok := s.tags[tag.Key]
	if !ok {
		return payload, 400, fmt.Errorf("invalid key for tag: %s", tag.Key)
	}

	values := make([]Tag, 0)
	for _, value := range tq() {
		values = append(values, Tag{
			Key:  tag.Key,
			Type: "string",
			Text: value,
		})
	}

	payload, err = json.Marshal(values)
	return payload, code, err
}

func (s *Server) search(_ *http.Request) (payload []byte, code int, err error) {
	targets := make([]string, len(s.targets))
	i := 0
	for target := range s.targets {
		targets[i] = target
		i++
	}
	payload, err = json.Marshal(targets)
	return
}
