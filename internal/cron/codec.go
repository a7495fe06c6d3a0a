package cron

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Tag is the literal marker that identifies a crontab line as owned by openclaw.
const Tag = "# openclaw:cron"

// runCommandMarker is the literal substring identifying a schedule-execution
// line, distinct from the metadata lines that merely carry the Tag.
const runCommandMarker = "openclaw cron run"

// idPattern constrains job ids to characters that cannot break out of a
// crontab line or inject shell metacharacters onto the execution line.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// ValidID reports whether id is safe to place verbatim on a crontab execution line.
func ValidID(id string) bool {
	return id != "" && idPattern.MatchString(id)
}

// Snapshot is the result of decoding a crontab's content.
type Snapshot struct {
	Jobs   []Job
	Lines  []string // the full original line list, preserved verbatim
	Errors []string // per-job decode failures, skipped rather than fatal
}

// RunCommand is the argv[0] written onto execution lines; overridable so
// tests and alternate installs don't hardcode "openclaw".
var RunCommand = "openclaw"

// Encode renders jobs as the crontab text to write, preserving every line
// in unrelatedLines untouched and appending the tagged block for jobs.
// Any existing tagged lines in unrelatedLines must already have been
// filtered out by the caller; Encode itself does not re-scan for the tag
// so it can be used to render a brand new block in isolation (e.g. for
// tests).
func Encode(jobs []Job, unrelatedLines []string) string {
	var out []string
	out = append(out, unrelatedLines...)

	hasResidue := false
	for _, l := range unrelatedLines {
		if strings.TrimSpace(l) != "" {
			hasResidue = true
			break
		}
	}
	if hasResidue && len(jobs) > 0 {
		out = append(out, "")
	}

	for _, j := range jobs {
		out = append(out, encodeJob(j)...)
	}

	text := strings.Join(out, "\n")
	text = collapseBlankRuns(text)
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text
}

// collapseBlankRuns replaces runs of 3+ newlines with exactly 2.
func collapseBlankRuns(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}

// encodeJob renders one job's metadata line(s) plus its execution line.
func encodeJob(j Job) []string {
	var lines []string

	base := map[string]string{
		"id":             j.ID,
		"name":           j.Name,
		"enabled":        strconv.FormatBool(j.Enabled),
		"session_target": string(j.SessionTarget),
		"wake_mode":      string(j.WakeMode),
		"created_at_ms":  strconv.FormatInt(j.CreatedAtMs, 10),
		"updated_at_ms":  strconv.FormatInt(j.UpdatedAtMs, 10),
	}
	if j.Description != "" {
		base["description"] = j.Description
	}
	if j.AgentID != "" {
		base["agent_id"] = j.AgentID
	}
	if j.SessionKey != "" {
		base["session_key"] = j.SessionKey
	}
	if j.DeleteAfterRun {
		base["delete_after_run"] = "true"
	}
	lines = append(lines, metadataLine(j.ID, base))

	lines = append(lines, metadataLine(j.ID, encodePayloadFields(j.Payload)))

	if j.Delivery != nil && j.Delivery.Mode != "" && j.Delivery.Mode != DeliveryModeNone {
		lines = append(lines, metadataLine(j.ID, encodeDeliveryFields(*j.Delivery)))
	}

	lines = append(lines, metadataLine(j.ID, encodeScheduleFields(j.Schedule)))

	resolved := Resolve(j.Schedule)
	expr := resolved.Expr
	if expr == "" {
		expr = j.Schedule.Expr
	}

	if resolved.TZ != "" {
		lines = append(lines, "CRON_TZ="+resolved.TZ)
	}

	exec := fmt.Sprintf("%s %s cron run %s %s id=%s", expr, RunCommand, j.ID, Tag, encodeValue(j.ID))
	if !j.Enabled {
		exec = "# " + exec
	}
	lines = append(lines, exec)

	if resolved.TZ != "" {
		lines = append(lines, "CRON_TZ=")
	}

	return lines
}

func encodePayloadFields(p Payload) map[string]string {
	m := map[string]string{"payload_kind": string(p.Kind)}
	switch p.Kind {
	case PayloadKindSystemEvent:
		m["payload_text"] = p.Text
	case PayloadKindAgentTurn:
		m["payload_message"] = p.Message
		if p.Model != "" {
			m["payload_model"] = p.Model
		}
		if p.Thinking != "" {
			m["payload_thinking"] = p.Thinking
		}
		if p.TimeoutSeconds != 0 {
			m["payload_timeout_seconds"] = strconv.Itoa(p.TimeoutSeconds)
		}
		if p.AllowUnsafeExternalContent {
			m["payload_allow_unsafe_external_content"] = "true"
		}
		if p.Deliver {
			m["payload_deliver"] = "true"
		}
		if p.Channel != "" {
			m["payload_channel"] = p.Channel
		}
		if p.To != "" {
			m["payload_to"] = p.To
		}
		if p.BestEffortDeliver {
			m["payload_best_effort_deliver"] = "true"
		}
	}
	return m
}

func encodeDeliveryFields(d Delivery) map[string]string {
	m := map[string]string{"delivery_mode": string(d.Mode)}
	if d.Channel != "" {
		m["delivery_channel"] = d.Channel
	}
	if d.To != "" {
		m["delivery_to"] = d.To
	}
	if d.BestEffort {
		m["delivery_best_effort"] = "true"
	}
	return m
}

func encodeScheduleFields(s Schedule) map[string]string {
	m := map[string]string{"schedule_kind": string(s.Kind)}
	switch s.Kind {
	case ScheduleKindCron:
		m["schedule_expr"] = s.Expr
		if s.TZ != "" {
			m["schedule_tz"] = s.TZ
		}
		if s.StaggerMs != 0 {
			m["schedule_stagger_ms"] = strconv.FormatInt(s.StaggerMs, 10)
		}
	case ScheduleKindEvery:
		m["schedule_every_ms"] = strconv.FormatInt(s.EveryMs, 10)
		if s.AnchorMs != 0 {
			m["schedule_anchor_ms"] = strconv.FormatInt(s.AnchorMs, 10)
		}
	case ScheduleKindAt:
		m["schedule_at"] = s.At
	}
	return m
}

// metadataLine renders a single "# openclaw:cron id=... k=v ..." line with
// deterministic field ordering (id first, then alphabetical) so encode
// output is stable across runs.
func metadataLine(id string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "id" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(Tag)
	b.WriteString(" id=")
	b.WriteString(encodeValue(id))
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(encodeValue(fields[k]))
	}
	return b.String()
}

// encodeValue percent-encodes a metadata value so whitespace, '#', '=',
// and control characters never corrupt the crontab line.
func encodeValue(v string) string {
	return url.QueryEscape(v)
}

// decodeValue reverses encodeValue. Malformed escapes fall back to the
// literal text; decoding is best-effort.
func decodeValue(v string) string {
	d, err := url.QueryUnescape(v)
	if err != nil {
		return v
	}
	return d
}

// Decode parses crontab content into a Snapshot. Lines are returned
// verbatim in Snapshot.Lines; unrelated (untagged) lines are never
// mutated, satisfying the Preservation invariant.
func Decode(content string) Snapshot {
	lines := splitLines(content)

	type partial struct {
		fields  map[string]string
		expr    string
		hasExec bool
		enabled bool
	}
	byID := make(map[string]*partial)
	order := make([]string, 0)

	for i, raw := range lines {
		if !strings.Contains(raw, Tag) {
			continue
		}

		enabled := true
		line := raw
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "#") && strings.Contains(line, runCommandMarker) {
			enabled = false
		}

		fields := parseFields(line)
		id := fields["id"]
		if id == "" {
			continue
		}

		p, ok := byID[id]
		if !ok {
			p = &partial{fields: make(map[string]string)}
			byID[id] = p
			order = append(order, id)
		}
		for k, v := range fields {
			if k == "id" {
				continue
			}
			p.fields[k] = v
		}

		if strings.Contains(line, runCommandMarker) {
			p.hasExec = true
			p.enabled = enabled
			p.expr = execExpr(line)
			if tz := precedingTZ(lines, i); tz != "" {
				p.fields["schedule_tz_observed"] = tz
			}
		}
	}

	var jobs []Job
	var errs []string
	for _, id := range order {
		p := byID[id]
		if !p.hasExec {
			errs = append(errs, fmt.Sprintf("job %s: no schedule-execution line found", id))
			continue
		}
		j, err := buildJob(id, p.fields, p.expr, p.enabled)
		if err != nil {
			errs = append(errs, fmt.Sprintf("job %s: %v", id, err))
			continue
		}
		jobs = append(jobs, j)
	}

	return Snapshot{Jobs: jobs, Lines: lines, Errors: errs}
}

// Lint surfaces non-fatal decode warnings without failing the read.
func Lint(content string) []string {
	lines := splitLines(content)
	seenIDsWithExec := map[string]bool{}
	seenIDsAny := map[string]bool{}
	var warnings []string

	for _, line := range lines {
		if !strings.Contains(line, Tag) {
			continue
		}
		fields := parseFields(line)
		id := fields["id"]
		if id == "" {
			warnings = append(warnings, "tagged line with no id: "+strings.TrimSpace(line))
			continue
		}
		seenIDsAny[id] = true
		if strings.Contains(line, runCommandMarker) {
			if seenIDsWithExec[id] {
				warnings = append(warnings, fmt.Sprintf("job %s: duplicate execution line", id))
			}
			seenIDsWithExec[id] = true
		}
	}
	for id := range seenIDsAny {
		if !seenIDsWithExec[id] {
			warnings = append(warnings, fmt.Sprintf("job %s: metadata with no execution line", id))
		}
	}
	return warnings
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}

// parseFields extracts key=value tokens following the Tag from a line.
func parseFields(line string) map[string]string {
	idx := strings.Index(line, Tag)
	if idx < 0 {
		return nil
	}
	rest := line[idx+len(Tag):]
	fields := make(map[string]string)
	for _, tok := range strings.Fields(rest) {
		eq := strings.IndexByte(tok, '=')
		if eq < 0 {
			continue
		}
		key := tok[:eq]
		val := tok[eq+1:]
		if key == "" {
			continue
		}
		// Stop once we reach the trailing comment re-tag on an execution
		// line ("... # openclaw:cron id=..."); only the first occurrence
		// of each key before the run-command marker matters, but since
		// both sides use the same tag and key set (id=) this is idempotent.
		fields[key] = decodeValue(val)
	}
	return fields
}

// execExpr extracts the five leading whitespace-separated tokens from a
// schedule-execution line, skipping a leading "# " disable marker.
func execExpr(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	trimmed = strings.TrimPrefix(trimmed, "# ")
	fields := strings.Fields(trimmed)
	if len(fields) < 5 {
		return ""
	}
	return strings.Join(fields[:5], " ")
}

// precedingTZ reports the CRON_TZ value on the line immediately before idx, if any.
func precedingTZ(lines []string, idx int) string {
	if idx == 0 {
		return ""
	}
	prev := strings.TrimSpace(lines[idx-1])
	if !strings.HasPrefix(prev, "CRON_TZ=") {
		return ""
	}
	return strings.TrimPrefix(prev, "CRON_TZ=")
}

func buildJob(id string, f map[string]string, expr string, enabled bool) (Job, error) {
	j := Job{
		ID:            id,
		Name:          f["name"],
		Description:   f["description"],
		Enabled:       enabled,
		AgentID:       f["agent_id"],
		SessionKey:    f["session_key"],
		SessionTarget: SessionTarget(orDefault(f["session_target"], string(SessionTargetMain))),
		WakeMode:      WakeMode(orDefault(f["wake_mode"], string(WakeModeNow))),
	}

	if v, ok := f["created_at_ms"]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			j.CreatedAtMs = n
		}
	}
	if v, ok := f["updated_at_ms"]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			j.UpdatedAtMs = n
		}
	}
	if v, ok := f["delete_after_run"]; ok {
		j.DeleteAfterRun = v == "true"
	}

	payloadKind := PayloadKind(orDefault(f["payload_kind"], string(PayloadKindSystemEvent)))
	j.Payload = Payload{Kind: payloadKind}
	switch payloadKind {
	case PayloadKindSystemEvent:
		j.Payload.Text = f["payload_text"]
	case PayloadKindAgentTurn:
		j.Payload.Message = f["payload_message"]
		j.Payload.Model = f["payload_model"]
		j.Payload.Thinking = f["payload_thinking"]
		if v, ok := f["payload_timeout_seconds"]; ok {
			n, err := strconv.Atoi(v)
			if err == nil {
				j.Payload.TimeoutSeconds = n
			}
		}
		j.Payload.AllowUnsafeExternalContent = f["payload_allow_unsafe_external_content"] == "true"
		j.Payload.Deliver = f["payload_deliver"] == "true"
		j.Payload.Channel = f["payload_channel"]
		j.Payload.To = f["payload_to"]
		j.Payload.BestEffortDeliver = f["payload_best_effort_deliver"] == "true"
	}

	if mode, ok := f["delivery_mode"]; ok {
		j.Delivery = &Delivery{
			Mode:       DeliveryMode(mode),
			Channel:    f["delivery_channel"],
			To:         f["delivery_to"],
			BestEffort: f["delivery_best_effort"] == "true",
		}
	}

	kind := ScheduleKind(f["schedule_kind"])
	switch kind {
	case ScheduleKindCron:
		j.Schedule = Schedule{Kind: ScheduleKindCron, Expr: orDefault(f["schedule_expr"], expr)}
		if tz, ok := f["schedule_tz"]; ok {
			j.Schedule.TZ = tz
		} else if tz, ok := f["schedule_tz_observed"]; ok {
			j.Schedule.TZ = tz
		}
		if v, ok := f["schedule_stagger_ms"]; ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err == nil {
				j.Schedule.StaggerMs = n
			}
		}
	case ScheduleKindEvery:
		j.Schedule = Schedule{Kind: ScheduleKindEvery}
		if v, ok := f["schedule_every_ms"]; ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err == nil {
				j.Schedule.EveryMs = n
			}
		}
		if v, ok := f["schedule_anchor_ms"]; ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err == nil {
				j.Schedule.AnchorMs = n
			}
		}
	case ScheduleKindAt:
		j.Schedule = Schedule{Kind: ScheduleKindAt, At: f["schedule_at"]}
	default:
		if expr == "" {
			return Job{}, fmt.Errorf("missing schedule metadata and no execution expression observed")
		}
		j.Schedule = Schedule{Kind: ScheduleKindCron, Expr: expr}
	}

	if j.Name == "" {
		return Job{}, fmt.Errorf("missing required field: name")
	}

	return j, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
