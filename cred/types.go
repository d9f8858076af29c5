package cred

import "github.com/redis/go-redis/v9"

// TallyLuaScript stores the latest tally snapshot for a sanction and
// appends the change to the sanction's audit stream in one round trip. The
// per-sanction INCR keeps stream ids unique when several refreshes land in
// the same millisecond.
var TallyLuaScript = redis.NewScript(`
local sanction = ARGV[1]
local count = ARGV[2]
local agree = ARGV[3]
local passed = ARGV[4]
local period = ARGV[5]

-- Latest snapshot, read back by callers that want the cached tally
redis.call("HSET", "sanction:" .. sanction .. ":tally", "count", count, "agree", agree, "passed", passed, "period", period)

-- Increment the per-sanction sequence counter
local sequence = redis.call("INCR", "sanction:" .. sanction .. ":sequence")

-- Append to the audit stream
redis.call("XADD", "sanction:" .. sanction .. ":events", "0-" .. sequence, "kind", "tally", "count", count, "agree", agree, "passed", passed, "period", period)

return sequence
`)

// LifecycleLuaScript appends a lifecycle transition (created, emergency on
// or off, rejected, executed) to the sanction's audit stream.
var LifecycleLuaScript = redis.NewScript(`
local sanction = ARGV[1]
local event = ARGV[2]
local detail = ARGV[3]

local sequence = redis.call("INCR", "sanction:" .. sanction .. ":sequence")

redis.call("XADD", "sanction:" .. sanction .. ":events", "0-" .. sequence, "kind", "lifecycle", "event", event, "detail", detail)

return sequence
`)
