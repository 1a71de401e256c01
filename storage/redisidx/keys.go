package redisidx

import (
	"fmt"
	"strconv"

	"github.com/poiesic/typeahead/core"
)

// Key schema. Index structures are generation-scoped so a rebuild can stage a
// complete replacement and flip a single pointer; display names and
// watermarks live outside generations.
//
//	ta:gen:places                current places generation
//	ta:gen:sch:<country>         current school generation per country
//	ta:g<G>:pl:pfx:<prefix>      ZSET id -> population, global scope
//	ta:g<G>:pl:pfx:c<C>:<prefix> ZSET, country scope, short prefixes only
//	ta:g<G>:pl:rec               HASH id -> msgpack(Place)
//	ta:g<G>:pl:keys              SET of keys written for generation G
//	ta:g<G>:sch:<C>:pfx:<prefix> SET of school ids
//	ta:g<G>:sch:<C>:rec          HASH id -> msgpack(School)
//	ta:g<G>:sch:<C>:seen:<id>    SET of prefixes the school occupies
//	ta:g<G>:sch:<C>:keys         SET of keys written for generation G
//	ta:name:city                 HASH id -> display name
//	ta:name:state                HASH id -> display name
//	ta:wm:<name>                 watermark, unix seconds

func placesGenKey() string {
	return "ta:gen:places"
}

func schoolGenKey(countryID core.ID) string {
	return fmt.Sprintf("ta:gen:sch:%d", countryID)
}

func placePrefixKey(gen uint64, scope core.ID, prefix string) string {
	if scope == 0 {
		return fmt.Sprintf("ta:g%d:pl:pfx:%s", gen, prefix)
	}
	return fmt.Sprintf("ta:g%d:pl:pfx:c%d:%s", gen, scope, prefix)
}

func placeRecordKey(gen uint64) string {
	return fmt.Sprintf("ta:g%d:pl:rec", gen)
}

func placeRegistryKey(gen uint64) string {
	return fmt.Sprintf("ta:g%d:pl:keys", gen)
}

func schoolPrefixKey(gen uint64, countryID core.ID, prefix string) string {
	return fmt.Sprintf("ta:g%d:sch:%d:pfx:%s", gen, countryID, prefix)
}

func schoolRecordKey(gen uint64, countryID core.ID) string {
	return fmt.Sprintf("ta:g%d:sch:%d:rec", gen, countryID)
}

func schoolSeenKey(gen uint64, countryID core.ID, id core.ID) string {
	return fmt.Sprintf("ta:g%d:sch:%d:seen:%d", gen, countryID, id)
}

func schoolRegistryKey(gen uint64, countryID core.ID) string {
	return fmt.Sprintf("ta:g%d:sch:%d:keys", gen, countryID)
}

func cityNameKey() string {
	return "ta:name:city"
}

func stateNameKey() string {
	return "ta:name:state"
}

func watermarkKey(name string) string {
	return "ta:wm:" + name
}

func idField(id core.ID) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseIDField(s string) (core.ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return core.ID(v), nil
}
