package web

import "net/http"

// indexHTML is the minimal subscription-link page: type a uid, get the
// feed URLs to paste into a calendar client.
const indexHTML = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>追番日历</title>
<style>
body { font-family: sans-serif; max-width: 40em; margin: 4em auto; padding: 0 1em; }
input { font-size: 1em; padding: .4em; width: 12em; }
code { background: #f2f2f2; padding: .2em .4em; word-break: break-all; }
li { margin: .6em 0; }
</style>
</head>
<body>
<h1>追番日历</h1>
<p>输入你的 B 站 uid，生成可订阅的日历链接（追番列表需公开）。</p>
<p><input id="vmid" inputmode="numeric" placeholder="uid"> <button onclick="render()">生成</button></p>
<ul id="links" hidden>
<li>追番日历: <code id="single"></code></li>
<li>合并日历: <code id="merged"></code></li>
</ul>
<script>
function render() {
  var vmid = document.getElementById('vmid').value.trim();
  if (!/^\d+$/.test(vmid)) { alert('请输入数字 uid'); return; }
  var base = location.origin;
  document.getElementById('single').textContent = base + '/ics?vmid=' + vmid;
  document.getElementById('merged').textContent = base + '/ics/merged?vmid=' + vmid;
  document.getElementById('links').hidden = false;
}
</script>
</body>
</html>
`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}
