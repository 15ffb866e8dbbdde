package rt

import (
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("objrt.rt")
