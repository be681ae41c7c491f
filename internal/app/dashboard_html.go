package app

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Tradewatch</title>
    <style>
        :root {
            --bg-primary: #0d1117;
            --bg-secondary: #161b22;
            --border-color: #30363d;
            --text-primary: #c9d1d9;
            --text-secondary: #8b949e;
            --accent-green: #3fb950;
            --accent-red: #f85149;
            --accent-yellow: #d29922;
        }
        body { background: var(--bg-primary); color: var(--text-primary); font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; margin: 0; padding: 24px; }
        h1 { margin: 0 0 4px 0; }
        .updated { color: var(--text-secondary); margin: 0 0 16px 0; }
        .status { font-size: 12px; color: var(--text-secondary); }
        .controls { display: flex; gap: 12px; margin-bottom: 16px; }
        select { background: var(--bg-secondary); color: var(--text-primary); border: 1px solid var(--border-color); padding: 6px; border-radius: 6px; }
        .cards { display: flex; gap: 12px; flex-wrap: wrap; margin-bottom: 16px; }
        .card { background: var(--bg-secondary); border: 1px solid var(--border-color); border-radius: 8px; padding: 12px 16px; min-width: 120px; }
        .card .label { font-size: 12px; color: var(--text-secondary); }
        .card .value { font-size: 22px; font-weight: 600; }
        .positive { color: var(--accent-green); }
        .negative { color: var(--accent-red); }
        .banner { display: none; background: var(--accent-yellow); color: #000; padding: 10px 14px; border-radius: 6px; margin-bottom: 16px; font-weight: 600; }
        .log-box { background: var(--bg-secondary); border: 1px solid var(--border-color); border-radius: 8px; padding: 8px 16px; max-height: 480px; overflow-y: auto; }
        .log-entry { border-left: 4px solid var(--border-color); padding: 4px 12px; margin: 8px 0; }
        .log-entry.buy { border-color: var(--accent-green); }
        .log-entry.sell { border-color: var(--accent-red); }
        .log-entry.hold { border-color: var(--accent-yellow); }
        .log-entry p { margin: 2px 0; }
        svg { background: var(--bg-secondary); border: 1px solid var(--border-color); border-radius: 8px; margin-bottom: 16px; }
    </style>
</head>
<body>
    <h1>📈 Trading Live Logs</h1>
    <p class="updated">Last updated: <span id="lastUpdated">Loading...</span> <span class="status" id="wsStatus"></span></p>
    <div class="banner" id="banner"></div>

    <div class="controls">
        <label>Date <select id="dateSelect"></select></label>
        <label>P/L
            <select id="pnlSelect">
                <option value="ALL">All</option>
                <option value="PROFIT">Profit</option>
                <option value="LOSS">Loss</option>
            </select>
        </label>
    </div>

    <div class="cards">
        <div class="card"><div class="label">Total P/L</div><div class="value" id="totalPnl">0.00</div></div>
        <div class="card"><div class="label">Trades</div><div class="value" id="count">0</div></div>
        <div class="card"><div class="label">Actions</div><div class="value" id="actions" style="font-size: 14px;">-</div></div>
    </div>

    <svg id="chart" width="720" height="160"></svg>

    <div class="log-box" id="logBox"><p>🔄 Waiting for trade logs...</p></div>

    <script>
        function esc(s) {
            return String(s == null ? '' : s).replace(/[&<>"']/g, c => ({'&':'&amp;','<':'&lt;','>':'&gt;','"':'&quot;',"'":'&#39;'}[c]));
        }

        function postSelection(body) {
            fetch('/api/selection', {method: 'POST', headers: {'Content-Type': 'application/json'}, body: JSON.stringify(body)});
        }

        document.getElementById('dateSelect').onchange = e => postSelection({date: e.target.value});
        document.getElementById('pnlSelect').onchange = e => postSelection({pnl_filter: e.target.value});

        function renderChart(points) {
            const svg = document.getElementById('chart');
            const w = svg.clientWidth || 720, h = 160, mid = h / 2;
            if (!points.length) { svg.innerHTML = ''; return; }
            const max = Math.max(...points.map(p => Math.abs(p.pnl)), 1);
            const bw = Math.max(w / points.length - 2, 1);
            svg.innerHTML = '<line x1="0" x2="' + w + '" y1="' + mid + '" y2="' + mid + '" stroke="#30363d"/>' +
                points.map((p, i) => {
                    const bh = Math.abs(p.pnl) / max * (mid - 4);
                    const y = p.pnl >= 0 ? mid - bh : mid;
                    const color = p.pnl >= 0 ? '#3fb950' : '#f85149';
                    return '<rect x="' + (i * (bw + 2)) + '" y="' + y + '" width="' + bw + '" height="' + bh + '" fill="' + color + '"/>';
                }).join('');
        }

        function render(v) {
            if (v.last_updated) {
                document.getElementById('lastUpdated').textContent = new Date(v.last_updated).toLocaleTimeString();
            }

            const dateSelect = document.getElementById('dateSelect');
            dateSelect.innerHTML = (v.distinct_dates || []).map(d =>
                '<option value="' + esc(d) + '"' + (d === v.selected_date ? ' selected' : '') + '>' + esc(d) + '</option>').join('');
            document.getElementById('pnlSelect').value = v.pnl_filter;

            const s = v.summary;
            const total = document.getElementById('totalPnl');
            total.textContent = s.total_pnl_display;
            total.className = 'value ' + (s.total_pnl > 0 ? 'positive' : s.total_pnl < 0 ? 'negative' : '');
            document.getElementById('count').textContent = s.count;
            document.getElementById('actions').textContent =
                Object.entries(s.action_counts || {}).map(([k, n]) => k + ': ' + n).join('  ') || '-';
            renderChart(s.pnl_series || []);

            const box = document.getElementById('logBox');
            if (v.state === 'NO_DATA') {
                box.innerHTML = '<p>🔄 Waiting for trade logs...</p>';
                return;
            }
            box.innerHTML = (v.entries || []).map(log =>
                '<div class="log-entry ' + esc(String(log.Action || '').trim().toLowerCase()) + '">' +
                '<p><strong>' + esc(log.Time) + '</strong> - ' + esc(log.Action) + ' ' + esc(log.Price) + ' Qty: ' + esc(log.Qty) + '</p>' +
                '<p>P/L: ' + esc(log['P/L']) + ' | Unrealized: ' + esc(log.Unrealized) + ' | Net Worth: ' + esc(log['Net Worth']) + '</p>' +
                '</div>').join('');
        }

        function showBanner(t) {
            const el = document.getElementById('banner');
            el.textContent = '🔔 ' + t.banner;
            el.style.display = 'block';
            clearTimeout(showBanner.timer);
            showBanner.timer = setTimeout(() => { el.style.display = 'none'; }, 8000);
        }

        function connect() {
            const protocol = window.location.protocol === 'https:' ? 'wss:' : 'ws:';
            const ws = new WebSocket(protocol + '//' + window.location.host + '/ws');
            const status = document.getElementById('wsStatus');
            ws.onopen = () => { status.textContent = '● live'; };
            ws.onclose = () => {
                status.textContent = '○ reconnecting';
                setTimeout(connect, 2000);
            };
            ws.onerror = () => ws.close();
            ws.onmessage = e => {
                const msg = JSON.parse(e.data);
                if (msg.type === 'view') render(msg.view);
                if (msg.type === 'trade') showBanner(msg.trade);
            };
        }

        connect();
    </script>
</body>
</html>
`
