package server

import "html/template"

const sampleText = "NAME только очень быстро да а нет объект объект не смотрели аа потому что аа интересовала меня делать лене скидку они ответили что не сделают и все"

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Upload CSV File or Enter Text</title>
    <style>
        .container { display: flex; flex-direction: row; }
        .left, .right { flex: 1; margin: 10px; }
        #resultTable { display: none; }
        #textResult { margin-top: 20px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="left">
            <h1>Upload CSV File</h1>
            <form id="csvForm" enctype="multipart/form-data" method="post">
                <input type="file" name="file" id="csvFile" accept=".csv,.xlsx"><br><br>
                <input type="submit" value="Upload CSV">
            </form>
            <h2>CSV Data Preview</h2>
            <div id="resultTable"></div>
        </div>
        <div class="right">
            <h1>Or Enter Text</h1>
            <form id="textForm" method="post">
                <textarea name="text" id="textInput" rows="20" cols="100">{{.SampleText}}</textarea><br><br>
                <input type="submit" value="Process Text">
            </form>
            <div id="textResult"></div>
        </div>
    </div>
    <script>
        async function post(url, body, target) {
            let response = await fetch(url, { method: "POST", body: body });
            let el = document.getElementById(target);
            el.innerHTML = await response.text();
            el.style.display = "block";
        }
        document.getElementById("csvForm").onsubmit = function(event) {
            event.preventDefault();
            let formData = new FormData();
            formData.append("file", document.getElementById("csvFile").files[0]);
            post("/process-csv", formData, "resultTable");
        };
        document.getElementById("textForm").onsubmit = function(event) {
            event.preventDefault();
            let formData = new FormData();
            formData.append("text", document.getElementById("textInput").value);
            post("/process-text", formData, "textResult");
        };
    </script>
</body>
</html>
`))

// batchView is the data of the table preview fragment.
type batchView struct {
	ID          string
	Source      string
	Records     int
	Matched     int
	Malformed   int
	DownloadURL string
	TextColumn  string
	LabelColumn string
	Rows        []rowView
}

type rowView struct {
	Highlighted template.HTML
	Labels      string
	Error       string
}

var batchTemplate = template.Must(template.New("batch").Parse(`<h1>Updated CSV Results</h1>
<p>{{.Source}}: {{.Records}} rows, {{.Matched}} with a match, {{.Malformed}} with invalid labels.</p>
<a href="{{.DownloadURL}}" download>Download Updated CSV</a>
<h2>Data Preview</h2>
<table border="1" class="dataframe">
<thead><tr><th>{{.TextColumn}}</th><th>{{.LabelColumn}}</th></tr></thead>
<tbody>
{{- range .Rows}}
<tr><td>{{.Highlighted}}</td><td>{{.Labels}}{{if .Error}} <em title="{{.Error}}">(!)</em>{{end}}</td></tr>
{{- end}}
</tbody>
</table>
<a href="/">Go Back</a>
`))

// textView is the data of the free-text result fragment.
type textView struct {
	Highlighted template.HTML
	Labels      string
}

var textTemplate = template.Must(template.New("text").Parse(`<h1>Original Text</h1>
<p>{{.Highlighted}}</p>
<h1>Updated Labels</h1>
<p>{{.Labels}}</p>
`))

var errorTemplate = template.Must(template.New("error").Parse(`<h1>Error</h1>
<p>{{.}}</p>
<a href="/">Go Back</a>
`))
