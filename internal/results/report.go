// internal/results/report.go
package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"github.com/mwiater/klimax/internal/loadgen"
	"github.com/mwiater/klimax/internal/util"
)

type SweepReportData struct {
	Title     string
	SweepJSON template.JS
}

type reportSweep struct {
	StartedAt    string        `json:"started_at"`
	CompletedAt  string        `json:"completed_at"`
	Endpoint     string        `json:"endpoint"`
	EndpointType string        `json:"endpoint_type"`
	Model        string        `json:"model,omitempty"`
	Truncated    bool          `json:"truncated"`
	Levels       []reportLevel `json:"levels"`
}

type reportLevel struct {
	Concurrency             int                   `json:"concurrency"`
	Requests                int                   `json:"requests"`
	Repetitions             int                   `json:"repetitions"`
	ResponseTime            loadgen.MetricSummary `json:"response_time"`
	Throughput              loadgen.MetricSummary `json:"throughput"`
	SuccessRate             loadgen.MetricSummary `json:"success_rate"`
	OutputTokenThroughput   loadgen.MetricSummary `json:"system_output_token_throughput"`
	CombinedTokenThroughput loadgen.MetricSummary `json:"system_combined_token_throughput"`
	ErrorCounts             map[string]int        `json:"error_counts,omitempty"`
}

// GenerateSweepReport renders a standalone HTML dashboard for one sweep.
func GenerateSweepReport(result loadgen.SweepResult) (string, error) {
	payload, err := json.Marshal(condenseSweep(result))
	if err != nil {
		return "", err
	}

	viewModel := SweepReportData{
		Title:     "klimax: Endpoint Scaling Report",
		SweepJSON: template.JS(payload),
	}

	var buf bytes.Buffer
	if err := sweepReportTemplate.Execute(&buf, viewModel); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteHTMLReport renders the sweep dashboard and writes it to path.
func WriteHTMLReport(path string, result loadgen.SweepResult) error {
	html, err := GenerateSweepReport(result)
	if err != nil {
		return fmt.Errorf("failed generating HTML report: %w", err)
	}
	if err := util.WriteFile(path, []byte(html)); err != nil {
		return fmt.Errorf("unable to write HTML report %s: %w", path, err)
	}
	return nil
}

// condenseSweep trims the sweep document to what the dashboard consumes,
// dropping per-repetition runs and folding their error counts per level.
func condenseSweep(result loadgen.SweepResult) reportSweep {
	levels := make([]reportLevel, 0, len(result.Levels))
	for _, level := range result.Levels {
		var errorCounts map[string]int
		for _, run := range level.Runs {
			for kind, count := range run.ErrorCounts {
				if errorCounts == nil {
					errorCounts = make(map[string]int)
				}
				errorCounts[kind] += count
			}
		}
		levels = append(levels, reportLevel{
			Concurrency:             level.Concurrency,
			Requests:                level.Requests,
			Repetitions:             level.Repetitions,
			ResponseTime:            level.ResponseTime,
			Throughput:              level.Throughput,
			SuccessRate:             level.SuccessRate,
			OutputTokenThroughput:   level.OutputTokenThroughput,
			CombinedTokenThroughput: level.CombinedTokenThroughput,
			ErrorCounts:             errorCounts,
		})
	}

	return reportSweep{
		StartedAt:    result.StartedAt.Format(time.RFC3339),
		CompletedAt:  result.CompletedAt.Format(time.RFC3339),
		Endpoint:     result.Endpoint,
		EndpointType: result.EndpointType,
		Model:        result.Model,
		Truncated:    result.Truncated,
		Levels:       levels,
	}
}

var sweepReportTemplate = template.Must(template.New("sweep-report").Parse(sweepReportTemplateHTML))

const sweepReportTemplateHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{ .Title }}</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/css/bootstrap.min.css">
  <style>
    :root {
      --primary: #334155;
      --secondary: #64748B;
      --accent: #3B82F6;
      --light: #F1F5F9;
      --background: #FFFFFF;
      --text: #0F172A;
      --success: #10B981;
      --warning: #F59E0B;
      --border: #E2E8F0;
    }
    [data-theme="dark"] {
      --primary: #0F172A;
      --secondary: #94A3B8;
      --accent: #60A5FA;
      --light: #0B1220;
      --background: #0F172A;
      --text: #E2E8F0;
      --success: #34D399;
      --warning: #FBBF24;
      --border: rgba(148, 163, 184, 0.25);
    }
    body {
      background-color: var(--light);
      color: var(--text);
    }
    .navbar-dark {
      background-color: var(--primary) !important;
    }
    .navbar-dark .navbar-brand,
    .navbar-dark .text-light {
      color: var(--light) !important;
    }
    .card {
      border: 1px solid var(--border);
      background-color: var(--background);
    }
    .card .text-muted {
      color: var(--secondary) !important;
    }
    .table thead th,
    .table thead td {
      background-color: var(--light);
      color: var(--text);
      border-color: var(--border);
    }
    .table>tbody>tr>td {
      background-color: var(--background);
      color: var(--text);
      border-color: var(--border);
    }
    .chart-card {
      background: var(--background);
      border-radius: 16px;
      padding: 1.5rem;
      box-shadow: 0 1px 3px rgba(15, 23, 42, 0.1);
      border: 1px solid var(--border);
    }
    .chart-title {
      font-size: 1.25rem;
      font-weight: 700;
      color: var(--text);
      margin-bottom: 0.25rem;
    }
    .chart-subtitle {
      color: var(--secondary);
      margin-bottom: 1.5rem;
    }
    .chart-canvas {
      position: relative;
      height: 360px;
    }
    .badge.bg-danger {
      background-color: #DC2626 !important;
    }
    .theme-toggle {
      border: 1px solid var(--border);
      color: var(--light);
    }
    [data-theme="dark"] .theme-toggle {
      color: var(--text);
      background-color: rgba(148, 163, 184, 0.15);
    }
    [data-theme="dark"] .chart-card {
      box-shadow: 0 10px 28px rgba(2, 6, 23, 0.6);
    }
  </style>
</head>
<body>
  <nav class="navbar navbar-dark bg-dark">
    <div class="container-fluid">
      <span class="navbar-brand mb-0 h1">{{ .Title }}</span>
      <div class="d-flex align-items-center gap-3">
        <button class="btn btn-sm theme-toggle" id="themeToggle" type="button" aria-label="Toggle dark mode">&#9680;</button>
        <span class="text-light">Sweep started: <span id="startedAt">-</span></span>
      </div>
    </div>
  </nav>
  <main class="container-fluid my-4">
    <section>
      <div class="card shadow-sm">
        <div class="card-body">
          <div class="d-flex flex-wrap gap-4 align-items-center">
            <div><span class="text-muted">Endpoint:</span> <strong id="endpointLabel">-</strong></div>
            <div><span class="text-muted">Format:</span> <strong id="endpointTypeLabel">-</strong></div>
            <div><span class="text-muted">Model:</span> <strong id="modelLabel">-</strong></div>
            <div id="truncatedBadge"></div>
          </div>
        </div>
      </div>
    </section>

    <section class="mt-4">
      <div class="row g-3" id="summaryCards"></div>
    </section>

    <section class="mt-4">
      <div class="card shadow-sm">
        <div class="card-body">
          <h5 class="card-title">Levels</h5>
          <div class="table-responsive">
            <table class="table table-striped table-bordered align-middle" id="levelsTable">
              <thead>
                <tr>
                  <th>Concurrency</th>
                  <th>Requests</th>
                  <th>Repetitions</th>
                  <th>Success Rate</th>
                  <th>Mean Response Time (s)</th>
                  <th>Throughput (req/s)</th>
                  <th>Output Tokens/s</th>
                  <th>Combined Tokens/s</th>
                  <th>Errors</th>
                </tr>
              </thead>
              <tbody></tbody>
            </table>
          </div>
        </div>
      </div>
    </section>

    <section class="mt-4">
      <div class="row g-4">
        <div class="col-12 col-xl-6">
          <div class="chart-card">
            <div class="chart-title">Response Time vs Concurrency</div>
            <div class="chart-subtitle">Mean per-request latency with one standard deviation band</div>
            <div class="chart-canvas">
              <canvas id="responseTimeChart" aria-label="Response time chart" role="img"></canvas>
            </div>
          </div>
        </div>
        <div class="col-12 col-xl-6">
          <div class="chart-card">
            <div class="chart-title">Throughput vs Concurrency</div>
            <div class="chart-subtitle">Completed requests per second across the measurement window</div>
            <div class="chart-canvas">
              <canvas id="throughputChart" aria-label="Throughput chart" role="img"></canvas>
            </div>
          </div>
        </div>
        <div class="col-12 col-xl-6">
          <div class="chart-card">
            <div class="chart-title">Token Throughput vs Concurrency</div>
            <div class="chart-subtitle">System-wide output and combined token rates</div>
            <div class="chart-canvas">
              <canvas id="tokenThroughputChart" aria-label="Token throughput chart" role="img"></canvas>
            </div>
          </div>
        </div>
        <div class="col-12 col-xl-6">
          <div class="chart-card">
            <div class="chart-title">Success Rate vs Concurrency</div>
            <div class="chart-subtitle">Fraction of requests completing without a classified failure</div>
            <div class="chart-canvas">
              <canvas id="successRateChart" aria-label="Success rate chart" role="img"></canvas>
            </div>
          </div>
        </div>
      </div>
    </section>
  </main>
  <script src="https://code.jquery.com/jquery-3.7.1.min.js"></script>
  <script src="https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/js/bootstrap.bundle.min.js"></script>
  <script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.2/dist/chart.umd.min.js"></script>
  <script>
    var sweep = {{ .SweepJSON }};
  </script>
  <script>
    (function($) {
      function formatNumber(value, decimals) {
        if (value === null || value === undefined || isNaN(value)) {
          return '-';
        }
        return Number(value).toFixed(decimals);
      }

      function formatPercent(value, decimals) {
        if (value === null || value === undefined || isNaN(value)) {
          return '-';
        }
        return (Number(value) * 100).toFixed(decimals) + '%';
      }

      function meanWithStdev(summary, decimals) {
        if (!summary) {
          return '-';
        }
        return formatNumber(summary.mean, decimals) + ' ± ' + formatNumber(summary.stdev, decimals);
      }

      function applyTheme(theme) {
        var selected = theme === 'dark' ? 'dark' : 'light';
        document.documentElement.setAttribute('data-theme', selected);
        var toggle = document.getElementById('themeToggle');
        if (toggle) {
          var label = selected === 'dark' ? 'Switch to light mode' : 'Switch to dark mode';
          toggle.setAttribute('aria-label', label);
        }
        try {
          localStorage.setItem('klimax-theme', selected);
        } catch (e) {}
      }

      function initThemeToggle() {
        var saved = null;
        try {
          saved = localStorage.getItem('klimax-theme');
        } catch (e) {}
        applyTheme(saved || 'light');
        var toggle = document.getElementById('themeToggle');
        if (!toggle) {
          return;
        }
        toggle.addEventListener('click', function() {
          var current = document.documentElement.getAttribute('data-theme');
          applyTheme(current === 'dark' ? 'light' : 'dark');
        });
      }

      function populateHeader() {
        $('#startedAt').text(sweep.started_at || '-');
        $('#endpointLabel').text(sweep.endpoint || '-');
        $('#endpointTypeLabel').text(sweep.endpoint_type || '-');
        $('#modelLabel').text(sweep.model || '-');
        if (sweep.truncated) {
          $('#truncatedBadge').append('<span class="badge bg-danger">Truncated: sweep stopped before completing every level</span>');
        }
      }

      function summaryCard(title, value, caption) {
        var card = $('<div class="col-12 col-md-4"></div>');
        var body = $('<div class="card shadow-sm h-100"><div class="card-body"></div></div>');
        body.find('.card-body')
          .append($('<div class="text-muted"></div>').text(title))
          .append($('<div class="fs-4 fw-bold"></div>').text(value))
          .append($('<div class="text-muted"></div>').text(caption));
        card.append(body);
        return card;
      }

      function populateSummary(levels) {
        var $container = $('#summaryCards').empty();
        if (!levels.length) {
          return;
        }

        var peak = levels[0];
        var fastest = levels[0];
        var successSum = 0;
        levels.forEach(function(level) {
          if (level.throughput.mean > peak.throughput.mean) {
            peak = level;
          }
          if (level.response_time.mean > 0 &&
              (fastest.response_time.mean <= 0 || level.response_time.mean < fastest.response_time.mean)) {
            fastest = level;
          }
          successSum += level.success_rate.mean;
        });

        $container.append(summaryCard(
          'Peak throughput',
          formatNumber(peak.throughput.mean, 2) + ' req/s',
          'at concurrency ' + peak.concurrency
        ));
        $container.append(summaryCard(
          'Fastest mean response',
          formatNumber(fastest.response_time.mean, 2) + ' s',
          'at concurrency ' + fastest.concurrency
        ));
        $container.append(summaryCard(
          'Average success rate',
          formatPercent(successSum / levels.length, 2),
          'across ' + levels.length + ' concurrency levels'
        ));
      }

      function errorSummary(counts) {
        if (!counts) {
          return '-';
        }
        var parts = [];
        Object.keys(counts).sort().forEach(function(kind) {
          parts.push(kind + ': ' + counts[kind]);
        });
        return parts.length ? parts.join(', ') : '-';
      }

      function populateTable(levels) {
        var $tbody = $('#levelsTable tbody').empty();
        levels.forEach(function(level) {
          var $row = $('<tr></tr>');
          $row.append($('<td></td>').text(level.concurrency));
          $row.append($('<td></td>').text(level.requests));
          $row.append($('<td></td>').text(level.repetitions));
          $row.append($('<td></td>').text(formatPercent(level.success_rate.mean, 2)));
          $row.append($('<td></td>').text(meanWithStdev(level.response_time, 2)));
          $row.append($('<td></td>').text(meanWithStdev(level.throughput, 2)));
          $row.append($('<td></td>').text(meanWithStdev(level.system_output_token_throughput, 2)));
          $row.append($('<td></td>').text(meanWithStdev(level.system_combined_token_throughput, 2)));
          $row.append($('<td></td>').text(errorSummary(level.error_counts)));
          $tbody.append($row);
        });
      }

      function bandDatasets(label, summaries, color, bandColor) {
        var means = summaries.map(function(s) { return s.mean; });
        var upper = summaries.map(function(s) { return s.mean + s.stdev; });
        var lower = summaries.map(function(s) { return Math.max(s.mean - s.stdev, 0); });
        return [
          {
            label: label,
            data: means,
            borderColor: color,
            backgroundColor: color,
            borderWidth: 2,
            pointRadius: 4,
            pointHoverRadius: 7,
            tension: 0.25
          },
          {
            label: label + ' stdev-upper',
            data: upper,
            borderWidth: 0,
            pointRadius: 0,
            fill: false
          },
          {
            label: label + ' stdev-lower',
            data: lower,
            borderWidth: 0,
            pointRadius: 0,
            backgroundColor: bandColor,
            fill: '-1'
          }
        ];
      }

      function buildLineChart(canvasId, labels, datasets, yLabel, yFormatter) {
        var canvas = document.getElementById(canvasId);
        if (!canvas) {
          return null;
        }
        return new Chart(canvas, {
          type: 'line',
          data: { labels: labels, datasets: datasets },
          options: {
            responsive: true,
            maintainAspectRatio: false,
            animation: false,
            scales: {
              x: {
                title: {
                  display: true,
                  text: 'Concurrency',
                  font: { size: 13, weight: 'bold' },
                  color: '#64748B'
                },
                grid: { color: 'rgba(0, 0, 0, 0.05)' },
                ticks: { color: '#64748B' }
              },
              y: {
                beginAtZero: true,
                title: {
                  display: true,
                  text: yLabel,
                  font: { size: 13, weight: 'bold' },
                  color: '#64748B'
                },
                grid: { color: 'rgba(0, 0, 0, 0.05)' },
                ticks: {
                  color: '#64748B',
                  callback: yFormatter
                }
              }
            },
            plugins: {
              legend: {
                position: 'bottom',
                labels: {
                  usePointStyle: true,
                  boxWidth: 8,
                  color: '#64748B',
                  filter: function(item) {
                    return item.text.indexOf('stdev') === -1;
                  }
                }
              },
              tooltip: {
                filter: function(item) {
                  return item.dataset.label.indexOf('stdev') === -1;
                }
              }
            }
          }
        });
      }

      function buildCharts(levels) {
        var labels = levels.map(function(level) { return String(level.concurrency); });

        buildLineChart('responseTimeChart', labels,
          bandDatasets('Mean response time', levels.map(function(l) { return l.response_time; }),
            '#3B82F6', 'rgba(59, 130, 246, 0.15)'),
          'Seconds', function(value) { return formatNumber(value, 2); });

        buildLineChart('throughputChart', labels,
          bandDatasets('Throughput', levels.map(function(l) { return l.throughput; }),
            '#10B981', 'rgba(16, 185, 129, 0.15)'),
          'Requests per second', function(value) { return formatNumber(value, 2); });

        buildLineChart('tokenThroughputChart', labels,
          bandDatasets('Output tokens/s', levels.map(function(l) { return l.system_output_token_throughput; }),
            '#F59E0B', 'rgba(245, 158, 11, 0.15)').concat(
          bandDatasets('Combined tokens/s', levels.map(function(l) { return l.system_combined_token_throughput; }),
            '#64748B', 'rgba(100, 116, 139, 0.15)')),
          'Tokens per second', function(value) { return Math.round(value); });

        buildLineChart('successRateChart', labels,
          bandDatasets('Success rate', levels.map(function(l) { return l.success_rate; }),
            '#8B5CF6', 'rgba(139, 92, 246, 0.15)'),
          'Success rate', function(value) { return formatPercent(value, 0); });
      }

      $(function() {
        initThemeToggle();
        if (!sweep) {
          return;
        }

        var levels = sweep.levels || [];
        populateHeader();
        populateSummary(levels);
        populateTable(levels);
        buildCharts(levels);
      });
    })(jQuery);
  </script>
</body>
</html>
`
