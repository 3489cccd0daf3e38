package server

// Single-page UI. Server-side rendering covers the transcript on reload; the
// script streams new replies from /chat as they arrive.
const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Chat with File Context</title>
<style>
  body { font-family: sans-serif; max-width: 720px; margin: 2em auto; padding: 0 1em; }
  #transcript { border: 1px solid #ddd; border-radius: 6px; padding: 1em; min-height: 200px; }
  .turn { margin: 0.5em 0; white-space: pre-wrap; }
  .turn.user { color: #1a4d8f; }
  .turn.assistant { color: #222; }
  .turn .who { font-weight: bold; margin-right: 0.5em; }
  #status { color: #666; font-size: 0.9em; margin: 0.5em 0; }
  #error { color: #a00; }
  form.chat { display: flex; gap: 0.5em; margin-top: 1em; }
  form.chat input[type=text] { flex: 1; }
</style>
</head>
<body>
<h1>Chat with File Context</h1>

<section>
  <h2>File Upload</h2>
  <input type="file" id="file">
  <div id="status">{{if .HasContext}}Context file is active.{{else}}Upload a text file to provide context.{{end}}</div>
</section>

<section>
  <h2>Chat History</h2>
  <div id="transcript">
  {{range .Turns}}<div class="turn {{.Role}}"><span class="who">{{.Role}}:</span>{{.Content}}</div>
  {{end}}</div>
  <form class="chat" id="chat-form">
    <input type="text" id="message" placeholder="Ask your question..." autocomplete="off">
    <button type="submit">Send</button>
  </form>
  <div id="error"></div>
</section>

<script>
const transcript = document.getElementById('transcript');
const status = document.getElementById('status');
const errBox = document.getElementById('error');

function addTurn(role, content) {
  const div = document.createElement('div');
  div.className = 'turn ' + role;
  const who = document.createElement('span');
  who.className = 'who';
  who.textContent = role + ':';
  div.appendChild(who);
  div.appendChild(document.createTextNode(content));
  transcript.appendChild(div);
  return div;
}

document.getElementById('file').addEventListener('change', async (ev) => {
  const file = ev.target.files[0];
  if (!file) return;
  errBox.textContent = '';
  const form = new FormData();
  form.append('file', file);
  const resp = await fetch('/upload', { method: 'POST', body: form });
  const body = await resp.json();
  if (resp.ok) {
    status.textContent = 'Context file is active.';
  } else {
    errBox.textContent = body.error || 'upload failed';
  }
});

document.getElementById('chat-form').addEventListener('submit', async (ev) => {
  ev.preventDefault();
  const input = document.getElementById('message');
  const message = input.value.trim();
  if (!message) return;
  input.value = '';
  errBox.textContent = '';
  addTurn('user', message);
  const reply = addTurn('assistant', '');

  const resp = await fetch('/chat', {
    method: 'POST',
    headers: { 'Content-Type': 'application/x-www-form-urlencoded' },
    body: new URLSearchParams({ message }),
  });
  const reader = resp.body.getReader();
  const decoder = new TextDecoder();
  let buffer = '';
  for (;;) {
    const { done, value } = await reader.read();
    if (done) break;
    buffer += decoder.decode(value, { stream: true });
    let idx;
    while ((idx = buffer.indexOf('\n\n')) >= 0) {
      const frame = buffer.slice(0, idx);
      buffer = buffer.slice(idx + 2);
      let event = 'message', data = '';
      for (const line of frame.split('\n')) {
        if (line.startsWith('event: ')) event = line.slice(7);
        if (line.startsWith('data: ')) data = line.slice(6);
      }
      if (!data) continue;
      const payload = JSON.parse(data);
      if (event === 'message') {
        reply.lastChild.textContent += payload.content;
      } else if (event === 'error') {
        errBox.textContent = payload.error;
      }
    }
  }
});
</script>
</body>
</html>
`
