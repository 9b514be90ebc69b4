package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"sigs.k8s.io/yaml"

	"github.com/cbegin/fxhost-go"
	"github.com/cbegin/fxhost-go/internal/plugin"
)

const (
	outputFlag  = "output"
	outputTable = "table"
	outputYAML  = "yaml"
	outputJSON  = "json"
)

func encode(w io.Writer, output string, v any, renderTable func(table.Writer)) error {
	var data []byte
	var err error
	switch output {
	case outputJSON:
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	case outputYAML:
		data, err = yaml.Marshal(v)
	case outputTable:
		var buf bytes.Buffer
		t := table.NewWriter()
		t.SetOutputMirror(&buf)
		renderTable(t)
		style := table.StyleLight
		style.Options.DrawBorder = false
		t.SetStyle(style)
		t.Render()
		data = buf.Bytes()
	default:
		err = fmt.Errorf("unknown output format: %q", output)
	}
	if err != nil {
		return fmt.Errorf("encoding output as %q failed: %w", output, err)
	}
	_, err = w.Write(data)
	return err
}

func descriptorTable(ds []plugin.Descriptor) func(table.Writer) {
	return func(t table.Writer) {
		t.AppendHeader(table.Row{"Manufacturer", "Name", "Version", "Format", "Category"})
		for _, d := range ds {
			t.AppendRow(table.Row{d.Manufacturer, d.Name, d.Version, d.Format, d.Category})
		}
		t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, AutoMerge: true}})
	}
}

func entryTable(entries []fxhost.Entry) func(table.Writer) {
	return func(t table.Writer) {
		t.AppendHeader(table.Row{"#", "Name", "Version", "Format", "Bypassed", "Live"})
		for i, e := range entries {
			t.AppendRow(table.Row{i, e.Descriptor.Name, e.Descriptor.Version, e.Descriptor.Format, yesNo(e.Bypassed), yesNo(e.Live)})
		}
	}
}

func paramTable(params []plugin.Param) func(table.Writer) {
	return func(t table.Writer) {
		t.AppendHeader(table.Row{"Name", "Value", "Min", "Max", "Default"})
		for _, p := range params {
			t.AppendRow(table.Row{p.Name, formatFloat(p.Value), formatFloat(p.Min), formatFloat(p.Max), formatFloat(p.Default)})
		}
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}
