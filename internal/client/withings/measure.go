package withings

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/garrettladley/withings-sync/internal/xslog"
)

const (
	actionGetMeas = "getmeas"
	// categoryReal excludes user objectives.
	categoryReal = 1
)

type measureService struct {
	client *Client
}

type getMeasBody struct {
	UpdateTime  int64          `json:"updatetime"`
	Timezone    string         `json:"timezone"`
	MeasureGrps []MeasureGroup `json:"measuregrps"`
	More        int            `json:"more"`
	Offset      int            `json:"offset"`
}

func (s *measureService) GetMeasurements(ctx context.Context, start, end time.Time) ([]MeasureGroup, error) {
	const route = "/measure"

	s.client.logger.InfoContext(ctx, "fetching withings measurements", xslog.Start(start), xslog.End(end))

	var (
		groups []MeasureGroup
		offset int
	)
	for {
		form := url.Values{
			"action":    {actionGetMeas},
			"category":  {strconv.Itoa(categoryReal)},
			"startdate": {strconv.FormatInt(start.Unix(), 10)},
			"enddate":   {strconv.FormatInt(end.Unix(), 10)},
		}
		if offset > 0 {
			form.Set("offset", strconv.Itoa(offset))
		}

		var body getMeasBody
		if err := s.client.post(ctx, route, form, &body); err != nil {
			return nil, err
		}
		groups = append(groups, body.MeasureGrps...)

		if body.More == 0 || body.Offset <= offset {
			break
		}
		offset = body.Offset
	}

	s.client.logger.DebugContext(ctx, "withings measurements received", xslog.Count(len(groups)))
	return groups, nil
}

func (s *measureService) GetHeight(ctx context.Context) (*float64, error) {
	const route = "/measure"

	form := url.Values{
		"action":   {actionGetMeas},
		"meastype": {strconv.Itoa(int(TypeHeight))},
		"category": {strconv.Itoa(categoryReal)},
	}

	var body getMeasBody
	if err := s.client.post(ctx, route, form, &body); err != nil {
		return nil, err
	}

	var (
		height *float64
		latest int64
	)
	for _, group := range body.MeasureGrps {
		h, ok := group.Height()
		if !ok {
			continue
		}
		if height == nil || group.Date > latest {
			height = &h
			latest = group.Date
		}
	}

	if height == nil {
		s.client.logger.DebugContext(ctx, "no height recorded on withings")
	}
	return height, nil
}
