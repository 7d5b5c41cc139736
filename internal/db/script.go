package db

import "strconv"

// SetIfNewerScript implements VersionedHashStore.HSetIfNewer.
//
// KEYS[1] is the hash. ARGV[1] is the version, followed by (field, value, note)
// triples. Versions are compared as decimal strings so int64 values above
// 2^53 keep their order. Returns one 1 (written) or 0 (superseded) per triple.
const SetIfNewerScript = `
local function newer(a, b)
  if #a ~= #b then return #a > #b end
  return a > b
end
local ver = ARGV[1]
local out = {}
for i = 2, #ARGV, 3 do
  local f = ARGV[i]
  local cur = redis.call('HGET', KEYS[1], f .. '` + VersionSuffix + `')
  if cur and newer(cur, ver) then
    out[#out + 1] = 0
  else
    redis.call('HSET', KEYS[1], f, ARGV[i + 1], f .. '` + VersionSuffix + `', ver, f .. '` + NoteSuffix + `', ARGV[i + 2])
    out[#out + 1] = 1
  end
end
return out
`

// SetIfNewerArgs flattens a version and fields into script arguments.
func SetIfNewerArgs(version int64, fields []VersionedField) []string {
	args := make([]string, 0, 1+3*len(fields))
	args = append(args, strconv.FormatInt(version, 10))
	for _, f := range fields {
		args = append(args, f.Field, f.Value, f.Note)
	}
	return args
}

// Applied converts script replies to per-field flags.
func Applied(replies []int64) []bool {
	out := make([]bool, len(replies))
	for i, r := range replies {
		out[i] = r == 1
	}
	return out
}
