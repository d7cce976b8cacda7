package repository

import "github.com/redis/go-redis/v9"

// The four state transitions below are the only code that ever mutates the
// lifecycle sets.  Each script runs atomically on the Redis server, so no
// client can observe an id in two sets or in a set without its matching
// expiry entry.  redis.Script caches the SHA1 of each script and falls back
// to EVAL (re-registering it) exactly once when the server has evicted it.

// reserveScript pops up to ARGV[1] ids from available, moving each into
// reserved with lease expiry ARGV[2], and returns the flat sequence
// [id1, payload1, id2, payload2, ...].  Fewer than n pops is a normal
// outcome when available runs dry; the caller decides what underfill means.
//
// KEYS: 1=available 2=reserved 3=pool 4=reserved:exp
var reserveScript = redis.NewScript(`
local n = tonumber(ARGV[1])
local expiry = tonumber(ARGV[2])
local out = {}
for i = 1, n do
  local id = redis.call('SPOP', KEYS[1])
  if not id then
    break
  end
  redis.call('SADD', KEYS[2], id)
  redis.call('ZADD', KEYS[4], expiry, id)
  local payload = redis.call('HGET', KEYS[3], id) or ""
  table.insert(out, id)
  table.insert(out, payload)
end
return out
`)

// confirmScript moves each ARGV id from reserved to sold and drops its lease
// entry.  Ids no longer in reserved are skipped silently (SMOVE no-ops), so a
// confirm racing a sweeper reclaim cannot corrupt state; it just moves fewer
// ids.  Returns the argument count -- callers that care whether every id
// actually landed in sold must probe membership afterwards.
//
// KEYS: 1=reserved 2=sold 3=reserved:exp
var confirmScript = redis.NewScript(`
for i = 1, #ARGV do
  local id = ARGV[i]
  redis.call('SMOVE', KEYS[1], KEYS[2], id)
  redis.call('ZREM', KEYS[3], id)
end
return #ARGV
`)

// rollbackScript is confirmScript with available as the destination: the ids
// return to the purchasable set and the lease entries disappear.
//
// KEYS: 1=reserved 2=available 3=reserved:exp
var rollbackScript = redis.NewScript(`
for i = 1, #ARGV do
  local id = ARGV[i]
  redis.call('SMOVE', KEYS[1], KEYS[2], id)
  redis.call('ZREM', KEYS[3], id)
end
return #ARGV
`)

// reclaimScript releases up to ARGV[2] leases that expired at or before
// ARGV[1], oldest expiry first, and returns the released ids.  The limit
// keeps a single atomic invocation from stalling the server when a large
// batch of leases expires at once.
//
// KEYS: 1=reserved 2=available 3=reserved:exp
var reclaimScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local ids = redis.call('ZRANGEBYSCORE', KEYS[3], '-inf', now, 'LIMIT', 0, limit)
if #ids == 0 then
  return {}
end
for i = 1, #ids do
  local id = ids[i]
  redis.call('SMOVE', KEYS[1], KEYS[2], id)
  redis.call('ZREM', KEYS[3], id)
end
return ids
`)
