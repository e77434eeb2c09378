package httpserver

import (
	"fmt"
	"log"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tinytelemetry/eventlens/internal/aggregate"
	"github.com/tinytelemetry/eventlens/internal/export"
	"github.com/tinytelemetry/eventlens/internal/model"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

type recordRow struct {
	Class  aggregate.Class `json:"class"`
	Fields model.LogRecord `json:"fields"`
}

func (s *Server) handleHealth(c *gin.Context) {
	count, err := s.store.TotalRecordCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read health metrics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"uptime":       time.Since(s.startTime).String(),
		"record_count": count,
	})
}

func (s *Server) handleDataset(c *gin.Context) {
	ds := s.dataset
	c.JSON(http.StatusOK, gin.H{
		"id":        ds.ID,
		"source":    ds.Source,
		"format":    ds.Format,
		"schema":    ds.Schema.Name,
		"header":    ds.Header,
		"records":   len(ds.Records),
		"skipped":   ds.Skipped,
		"loaded_at": ds.LoadedAt,
	})
}

// filterFromQuery reads level, id and q. level and id may repeat or hold
// comma-separated lists.
func filterFromQuery(c *gin.Context) (aggregate.Filter, error) {
	return aggregate.NewFilter(c.QueryArray("level"), c.QueryArray("id"), c.Query("q"))
}

// view builds a fresh view for the request's filter, or writes a 400.
func (s *Server) view(c *gin.Context) (aggregate.View, bool) {
	f, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return aggregate.View{}, false
	}
	opts := s.opts
	if g := c.Query("granularity"); g != "" {
		gran, err := aggregate.ParseGranularity(g)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return aggregate.View{}, false
		}
		opts.Granularity = gran
	}
	if field := c.Query("value"); field != "" {
		if !slices.Contains(s.dataset.Header, field) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown value field %q", field)})
			return aggregate.View{}, false
		}
		opts.ValueField = field
	}
	return aggregate.Build(s.dataset, f, opts), true
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func (s *Server) handleRecords(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if limit == 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	f, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	records := f.Apply(s.dataset.Records, s.dataset.Schema)

	total := len(records)
	start := min(offset, total)
	end := min(start+limit, total)

	rows := make([]recordRow, 0, end-start)
	for _, rec := range records[start:end] {
		rows = append(rows, recordRow{Class: aggregate.Classify(rec, s.dataset.Schema), Fields: rec})
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   total,
		"offset":  offset,
		"limit":   limit,
		"header":  s.dataset.Header,
		"records": rows,
	})
}

func (s *Server) handleSummary(c *gin.Context) {
	v, ok := s.view(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, v.Summary)
}

func (s *Server) handleTimeSeries(c *gin.Context) {
	v, ok := s.view(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": v.Series})
}

func (s *Server) handleHours(c *gin.Context) {
	v, ok := s.view(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"hours": v.Hours})
}

func (s *Server) handleExport(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	records := f.Apply(s.dataset.Records, s.dataset.Schema)

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, model.DefaultExportName))
	c.Status(http.StatusOK)
	if err := export.WriteCSV(c.Writer, s.dataset.Header, records); err != nil {
		log.Printf("httpserver: export failed after %d records: %v", len(records), err)
	}
}

func (s *Server) handleDescribe(c *gin.Context) {
	id := c.Param("id")
	text := model.NoExplanation
	if s.describer != nil {
		text = s.describer.Describe(c.Request.Context(), id)
	}
	c.JSON(http.StatusOK, gin.H{
		"id":          id,
		"description": text,
		"found":       text != model.NoExplanation,
	})
}

func (s *Server) handleSchema(c *gin.Context) {
	description := s.store.GetSchemaDescription()

	tables, err := s.store.ExecuteQuery(
		"SELECT table_name, column_name, data_type FROM information_schema.columns WHERE table_schema = 'main' ORDER BY table_name, ordinal_position",
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read schema metadata"})
		return
	}

	schema := make(map[string][]map[string]string)
	for _, row := range tables {
		tableName := fmt.Sprintf("%v", row["table_name"])
		schema[tableName] = append(schema[tableName], map[string]string{
			"column": fmt.Sprintf("%v", row["column_name"]),
			"type":   fmt.Sprintf("%v", row["data_type"]),
		})
	}

	counts, err := s.store.TableRowCounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read table row counts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"description": description,
		"tables":      schema,
		"row_counts":  counts,
	})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req struct {
		SQL string `json:"sql" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing sql field"})
		return
	}

	results, err := s.store.ExecuteQuery(req.SQL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var columns []string
	if len(results) > 0 {
		for col := range results[0] {
			columns = append(columns, col)
		}
		sort.Strings(columns)
	}

	c.JSON(http.StatusOK, gin.H{
		"columns":   columns,
		"rows":      results,
		"row_count": len(results),
	})
}
