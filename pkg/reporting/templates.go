/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: templates.go
Description: Built-in report templates. The HTML report is rendered with html/template and
doubles as the PDF source; the text summary is a pongo2 template that users can replace.
*/

package reporting

// htmlTemplate is the standalone HTML report
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}} - {{.Source}}</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif;
            background: #f4f5fb;
            color: #333;
        }
        .container { max-width: 1200px; margin: 0 auto; padding: 20px; }
        .header {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: #fff;
            border-radius: 16px;
            padding: 24px 30px;
            margin-bottom: 24px;
        }
        .header h1 { font-size: 2rem; margin-bottom: 6px; }
        .header p { opacity: 0.85; }
        .cards { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 16px; margin-bottom: 24px; }
        .card { background: #fff; border-radius: 12px; padding: 16px; box-shadow: 0 4px 16px rgba(0, 0, 0, 0.06); }
        .card .label { color: #718096; font-size: 0.85rem; text-transform: uppercase; letter-spacing: 0.04em; }
        .card .value { font-size: 1.5rem; font-weight: 700; color: #4a5568; margin-top: 4px; }
        .section { background: #fff; border-radius: 12px; padding: 20px; margin-bottom: 24px; box-shadow: 0 4px 16px rgba(0, 0, 0, 0.06); }
        .section h2 { color: #4a5568; margin-bottom: 12px; font-size: 1.25rem; }
        table { width: 100%; border-collapse: collapse; font-size: 0.9rem; }
        th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #edf2f7; }
        th { color: #718096; font-weight: 600; }
        tr.anomalous td { color: #c53030; }
        .impact-high { color: #c53030; font-weight: 700; }
        .impact-medium { color: #dd6b20; font-weight: 700; }
        .impact-low { color: #718096; }
        .empty { color: #a0aec0; font-style: italic; }
    </style>
</head>
<body>
<div class="container">
    <div class="header">
        <h1>{{.Title}}</h1>
        <p id="source">{{.Source}}</p>
        <p>Generated {{.GeneratedAt.Format "2006-01-02 15:04:05"}} &middot; report {{.ID}} &middot; v{{.Version}}</p>
    </div>

    {{with .Summary}}
    <div class="cards" id="summary">
        <div class="card"><div class="label">Score</div><div class="value" id="score">{{.Score}}</div></div>
        <div class="card"><div class="label">Layers</div><div class="value" id="layer-count">{{.Layers}}</div></div>
        <div class="card"><div class="label">Print time</div><div class="value">{{.PrintTime}}</div></div>
        <div class="card"><div class="label">Filament</div><div class="value">{{f2 .FilamentWeight}} g</div></div>
        <div class="card"><div class="label">Volume</div><div class="value">{{f2 .TotalVolume}} mm³</div></div>
        <div class="card"><div class="label">Infill</div><div class="value" id="pattern">{{.Pattern}}</div></div>
        <div class="card"><div class="label">Infill density</div><div class="value">{{f1 .InfillDensity}}%</div></div>
        <div class="card"><div class="label">Travel ratio</div><div class="value">{{pct .TravelRatio}}</div></div>
    </div>

    <div class="section" id="parameters">
        <h2>Inferred parameters</h2>
        <table>
            <tr><th>Slicer</th><td>{{if .Slicer}}{{.Slicer}}{{else}}unknown{{end}}</td></tr>
            <tr><th>Layer height</th><td>{{f3 .LayerHeight}} mm</td></tr>
            <tr><th>Extrusion width</th><td>{{f3 .ExtrusionWidth}} mm</td></tr>
            <tr><th>Nozzle diameter</th><td>{{f2 .NozzleDiameter}} mm</td></tr>
            <tr><th>Part size</th><td>{{f1 .SizeX}} &times; {{f1 .SizeY}} &times; {{f1 .SizeZ}} mm</td></tr>
            <tr><th>Commands</th><td>{{.Commands}} over {{.Lines}} lines</td></tr>
        </table>
    </div>
    {{end}}

    <div class="section" id="suggestions">
        <h2>Suggestions</h2>
        {{with .Suggestions}}
        <table>
            <thead><tr><th>Category</th><th>Description</th><th>Time (min)</th><th>Material (g)</th><th>Impact</th><th>How</th></tr></thead>
            <tbody>
            {{range .}}
            <tr class="suggestion" data-category="{{.Category}}">
                <td>{{.Category}}</td>
                <td>{{.Description}}</td>
                <td>{{f1 .PotentialTimeSaving}}</td>
                <td>{{f1 .PotentialMaterialSaving}}</td>
                <td class="impact-{{.Impact}}">{{.Impact}}</td>
                <td>{{.Implementation}}</td>
            </tr>
            {{end}}
            </tbody>
        </table>
        {{else}}
        <p class="empty">No suggestions, the print profile looks well tuned.</p>
        {{end}}
    </div>

    {{with .Result}}{{with .Analysis}}
    <div class="section">
        <h2>Warnings</h2>
        {{with .Warnings}}
        <ul id="warnings">
            {{range .}}<li class="warning" data-kind="{{.Kind}}">{{.String}}</li>{{end}}
        </ul>
        {{else}}
        <p class="empty">No warnings.</p>
        {{end}}
    </div>

    <div class="section">
        <h2>Layers</h2>
        <table id="layers">
            <thead><tr><th>#</th><th>Z</th><th>Thickness</th><th>Commands</th><th>Volume (mm³)</th><th>Travel (mm)</th><th>Time (s)</th><th>Pattern</th><th>Density</th></tr></thead>
            <tbody>
            {{range .Layers}}
            <tr{{if .Anomalous}} class="anomalous"{{end}}>
                <td>{{.Index}}</td>
                <td>{{f3 .Z}}</td>
                <td>{{f3 .Thickness}}</td>
                <td>{{.CommandCount}}</td>
                <td>{{f2 .ExtrusionVolume}}</td>
                <td>{{f1 .TravelDistance}}</td>
                <td>{{f1 .PrintTime}}</td>
                <td>{{.Pattern}}</td>
                <td>{{f1 .InfillDensity}}%</td>
            </tr>
            {{end}}
            </tbody>
        </table>
    </div>
    {{end}}{{end}}
</div>
</body>
</html>
`

// textTemplate is the default pongo2 terminal summary
const textTemplate = `{{ report.Title }}: {{ report.Source }}
{% if summary.Slicer %}Slicer:          {{ summary.Slicer }}
{% endif %}Score:           {{ summary.Score }}/100
Layers:          {{ summary.Layers }} ({{ summary.Commands }} commands, {{ summary.Lines }} lines)
Print time:      {{ summary.PrintTime }}
Filament:        {{ summary.FilamentLength|floatformat:1 }} mm, {{ summary.FilamentWeight|floatformat:2 }} g
Volume:          {{ summary.TotalVolume|floatformat:2 }} mm3
Size:            {{ summary.SizeX|floatformat:1 }} x {{ summary.SizeY|floatformat:1 }} x {{ summary.SizeZ|floatformat:1 }} mm
Layer height:    {{ summary.LayerHeight|floatformat:3 }} mm
Extrusion width: {{ summary.ExtrusionWidth|floatformat:3 }} mm
Nozzle:          {{ summary.NozzleDiameter|floatformat:2 }} mm
Infill:          {{ summary.Pattern }} at {{ summary.InfillDensity|floatformat:1 }}% (confidence {{ summary.PatternConfidence|floatformat:2 }})
Travel ratio:    {{ summary.TravelRatio|floatformat:2 }}
Warnings:        {{ summary.Warnings }}{% for w in warning_kinds %}
  {{ w.Kind }}: {{ w.Count }}{% endfor %}
{% if suggestions %}
Suggestions:
{% for s in suggestions %}  [{{ s.Impact }}] {{ s.Category }}: {{ s.Description }}
      saves {{ s.PotentialTimeSaving|floatformat:1 }} min, {{ s.PotentialMaterialSaving|floatformat:1 }} g
      {{ s.Implementation }}
{% endfor %}{% else %}
No suggestions.
{% endif %}`
