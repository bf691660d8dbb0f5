package web

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/tablegen/internal/core"
)

const pageHead = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>tablegen</title>
<style>
body{font-family:system-ui,sans-serif;max-width:52rem;margin:2rem auto;padding:0 1rem;color:#1f2933}
section{border:1px solid #d9e2ec;border-radius:6px;padding:1rem 1.25rem;margin-bottom:1.5rem}
label{display:block;margin:.5rem 0 .25rem}
textarea,input,select{width:100%;box-sizing:border-box}
table{border-collapse:collapse;width:100%}td,th{border-bottom:1px solid #d9e2ec;padding:.25rem .5rem;text-align:left}
.alert{border:1px solid #e12d39;background:#ffe3e3;padding:.75rem;border-radius:4px}
</style>
</head>
<body>
`

const generateForm = `<section>
<h2>Generate a dataset</h2>
<form id="generate">
<label for="prompt">Describe the dataset</label>
<textarea id="prompt" rows="3" placeholder="Ten students with name, age and grade"></textarea>
<label for="format">Format</label>
<select id="format"><option>xlsx</option><option>csv</option><option>parquet</option></select>
<p><button type="submit">Generate</button></p>
<div id="generate-result"></div>
</form>
</section>
`

const synthForm = `<section>
<h2>Synthesize from CSV files</h2>
<form method="post" action="/api/synthesize" enctype="multipart/form-data">
<label for="files">CSV files (table name = file name)</label>
<input id="files" type="file" name="files" accept=".csv" multiple required>
<label for="mode">Mode</label>
<select id="mode" name="mode"><option value="single">Single table</option><option value="multi">Multiple related tables</option></select>
<label for="rows">Rows to generate</label>
<input id="rows" type="number" name="rows" min="1" value="%d">
<label for="max_text_len">Max text length (multi-table)</label>
<input id="max_text_len" type="number" name="max_text_len" min="%d" value="%d">
<p><button type="submit">Train and sample</button></p>
</form>
</section>
`

const generateScript = `<script>
document.getElementById("generate").addEventListener("submit", async (e) => {
  e.preventDefault();
  const out = document.getElementById("generate-result");
  out.textContent = "Generating...";
  const res = await fetch("/api/generate", {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify({prompt: document.getElementById("prompt").value, format: document.getElementById("format").value}),
  });
  if (!res.ok) {
    const body = await res.json();
    out.textContent = body.details ? body.error + ": " + body.details : body.error;
    return;
  }
  const url = URL.createObjectURL(await res.blob());
  const name = (res.headers.get("Content-Disposition") || "").split("filename=")[1] || "generated_dataset";
  out.innerHTML = "";
  const a = document.createElement("a");
  a.href = url; a.download = name.replaceAll('"', ""); a.textContent = "Download " + a.download;
  out.appendChild(a);
});
</script>
`

// indexPage renders the landing page with the generation and synthesis
// forms and the most recent runs.
func indexPage(cfg core.ServiceConfig, runs []core.RunRecord) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, pageHead+"<h1>tablegen</h1>\n"+generateForm); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, synthForm, cfg.DefaultRows, cfg.MinTextLen, cfg.MaxTextLen); err != nil {
			return err
		}
		if err := recentRuns(runs).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, generateScript+"</body>\n</html>\n")
		return err
	})
}

// recentRuns renders the run history table.
func recentRuns(runs []core.RunRecord) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<section>\n<h2>Recent runs</h2>\n"); err != nil {
			return err
		}
		if len(runs) == 0 {
			_, err := io.WriteString(w, "<p>No runs yet.</p>\n</section>\n")
			return err
		}
		if _, err := io.WriteString(w, "<table>\n<tr><th>Run</th><th>Kind</th><th>Status</th><th>Rows</th><th>Started</th></tr>\n"); err != nil {
			return err
		}
		for _, r := range runs {
			status := string(r.Status)
			if r.FailureKind != "" {
				status += " (" + r.FailureKind + ")"
			}
			_, err := fmt.Fprintf(w, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%d</td><td>%s</td></tr>\n",
				templ.EscapeString(r.ID),
				templ.EscapeString(string(r.Kind)),
				templ.EscapeString(status),
				r.Rows,
				r.StartedAt.Format("2006-01-02 15:04:05"),
			)
			if err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</table>\n</section>\n")
		return err
	})
}

// errorAlert renders an error fragment for HTMX requests.
func errorAlert(msg core.UserMessage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="alert" role="alert"><strong>%s</strong>`, templ.EscapeString(msg.Message))
		if err != nil {
			return err
		}
		if msg.Action != "" {
			if _, err := fmt.Fprintf(w, " %s", templ.EscapeString(msg.Action)); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(w, ` <small>(%s)</small></div>`, templ.EscapeString(msg.Code))
		return err
	})
}
