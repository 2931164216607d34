package service

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"veritas/core"
)

// ExportFormat identifies a serialization format for audit trail export
type ExportFormat string

const (
	FormatJSON    ExportFormat = "json"
	FormatCSV     ExportFormat = "csv"
	FormatXML     ExportFormat = "xml"
	FormatYAML    ExportFormat = "yaml"
	FormatMsgpack ExportFormat = "msgpack"
)

// IsValid checks if the format is supported
func (f ExportFormat) IsValid() bool {
	switch f {
	case FormatJSON, FormatCSV, FormatXML, FormatYAML, FormatMsgpack:
		return true
	default:
		return false
	}
}

// xmlTrail shapes the XML export document.
type xmlTrail struct {
	XMLName xml.Name           `xml:"audit_trail"`
	Entries []core.SealedEntry `xml:"entry"`
}

// ExportAuditTrail serializes every sealed entry, ascending by sequence,
// into the requested format. It reads sealed state only and never mutates
// the chain.
func (s *QueryService) ExportAuditTrail(format ExportFormat) ([]byte, error) {
	entries := s.sealedEntries()
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Sequence < entries[j].Sequence
	})

	switch ExportFormat(strings.ToLower(string(format))) {
	case FormatJSON:
		return json.MarshalIndent(entries, "", "  ")
	case FormatCSV:
		return exportCSV(entries)
	case FormatXML:
		return xml.MarshalIndent(xmlTrail{Entries: entries}, "", "  ")
	case FormatYAML:
		return yaml.Marshal(entries)
	case FormatMsgpack:
		return msgpack.Marshal(entries)
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrExportFormat, format)
	}
}

func exportCSV(entries []core.SealedEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"id", "sequence", "entry_hash", "operation_id", "timestamp",
		"operation", "result", "key_id", "user_id", "source_ip",
		"classification", "retention_years", "frameworks",
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, e := range entries {
		row := []string{
			e.ID,
			strconv.FormatUint(e.Sequence, 10),
			e.EntryHash,
			e.Record.OperationID,
			e.Record.Timestamp.UTC().Format(time.RFC3339Nano),
			e.Record.Operation,
			e.Record.Result.String(),
			e.Record.KeyID,
			e.Record.UserID,
			e.Record.SourceIP,
			string(e.ComplianceMetadata.Classification),
			strconv.Itoa(e.ComplianceMetadata.RetentionYears),
			strings.Join(e.ComplianceMetadata.Frameworks, ";"),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
