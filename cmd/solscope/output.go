package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/brojonat/solscope/service/display"
	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"
)

// output writes parsed values as tables, JSON or YAML.
type output struct {
	w      io.Writer
	format string
	jq     *gojq.Code
	table  *display.Renderer
}

func newOutput(w io.Writer, format, jqExpr string, width int) (*output, error) {
	switch format {
	case "table", "json", "yaml":
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}

	o := &output{w: w, format: format, table: display.New(w, width)}
	if jqExpr == "" {
		return o, nil
	}
	if format == "table" {
		o.format = "json"
	}

	query, err := gojq.Parse(jqExpr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", jqExpr, err)
	}
	o.jq, err = gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", jqExpr, err)
	}
	return o, nil
}

// emit writes v in the configured format. renderTable draws the table view.
func (o *output) emit(v interface{}, renderTable func(r *display.Renderer) error) error {
	switch o.format {
	case "json":
		if o.jq != nil {
			return o.emitJQ(v)
		}
		enc := json.NewEncoder(o.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		generic, err := toGeneric(v)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(o.w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return renderTable(o.table)
	}
}

// slotFailed reports a slot of a range scan that produced no summary.
func (o *output) slotFailed(slot uint64, err error) error {
	if o.format == "table" {
		o.table.SlotFailed(slot, err)
		return nil
	}
	return o.emit(struct {
		Slot  uint64 `json:"slot"`
		Error string `json:"error"`
	}{slot, err.Error()}, nil)
}

func (o *output) emitJQ(v interface{}) error {
	generic, err := toGeneric(v)
	if err != nil {
		return err
	}
	iter := o.jq.Run(generic)
	for {
		result, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, ok := result.(error); ok {
			return fmt.Errorf("jq: %w", err)
		}
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal jq result: %w", err)
		}
		fmt.Fprintln(o.w, string(data))
	}
}

// toGeneric round-trips v through JSON so both gojq and yaml see the same
// field names as the JSON output.
func toGeneric(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return generic, nil
}
