package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nicolagi/rolodex/person"
	log "github.com/sirupsen/logrus"
)

const invalidDataMessage = "Invalid data"

// queryRecords answers with the ids of the matching records when last_name
// or first_name is given, and with every record in full otherwise.
func (s *Server) queryRecords(c *gin.Context) {
	result, err := s.opts.documents.Query(c.Request.Context(), c.Query("last_name"), c.Query("first_name"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// upsertRecords accepts a JSON array of records, or a single record. Records
// that fail to upsert are logged and skipped; the response does not tell.
func (s *Server) upsertRecords(c *gin.Context) {
	records, ok := decodeRecords(c)
	if !ok {
		text(c, http.StatusBadRequest, invalidDataMessage)
		return
	}
	results, err := s.opts.documents.UpsertAll(c.Request.Context(), records)
	if err != nil {
		_ = c.Error(err)
		return
	}
	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.WithFields(log.Fields{
				"index": r.Index,
				"err":   r.Err,
			}).Debug("Skipped record")
		}
	}
	if failed > 0 {
		log.WithFields(log.Fields{
			"failed": failed,
			"total":  len(results),
		}).Warn("Some records could not be upserted")
	}
	text(c, http.StatusCreated, "Created all items successfully")
}

func (s *Server) deleteAllRecords(c *gin.Context) {
	n, err := s.opts.documents.DeleteAll(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	log.WithField("count", n).Info("Deleted all records")
	text(c, http.StatusOK, "Deleted all items successfully")
}

// decodeRecords reports false for a missing, empty or unparsable body. Array
// elements that are not objects decode to nil records, which fail to upsert.
func decodeRecords(c *gin.Context) ([]person.Record, bool) {
	body, err := c.GetRawData()
	if err != nil {
		return nil, false
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, false
	}
	if body[0] == '{' {
		var r person.Record
		if err := json.Unmarshal(body, &r); err != nil || len(r) == 0 {
			return nil, false
		}
		return []person.Record{r}, true
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(body, &elements); err != nil || len(elements) == 0 {
		return nil, false
	}
	records := make([]person.Record, len(elements))
	for i, e := range elements {
		var r person.Record
		if err := json.Unmarshal(e, &r); err == nil {
			records[i] = r
		}
	}
	return records, true
}
