package session

import "strings"

// variableIDSep joins a canonical file path and a waveform.Variable.ID into
// the globally-unique variable id SessionState and the wire protocol use,
// since two different loaded files may declare identically-named scopes
// and variables.
const variableIDSep = "::"

// JoinVariableID builds the globally-unique variable id SessionState and
// the wire protocol use from a canonical file path and a waveform.Variable's
// file-local id. Exported so internal/pipeline can build the same ids when
// translating a Hierarchy response's variable list.
func JoinVariableID(filePath, fileLocalID string) string {
	return filePath + variableIDSep + fileLocalID
}

// SplitVariableID reverses JoinVariableID. If id wasn't built by
// JoinVariableID (e.g. a stale id from a prior protocol version), filePath
// is empty and fileLocalID is the id unchanged.
func SplitVariableID(id string) (filePath, fileLocalID string) {
	idx := strings.LastIndex(id, variableIDSep)
	if idx < 0 {
		return "", id
	}
	return id[:idx], id[idx+len(variableIDSep):]
}
