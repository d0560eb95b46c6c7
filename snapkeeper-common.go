package snapkeeper

import (
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
)

// ReservedTagPrefix marks tags that AWS reserves for internal use.
// They can not be written by users so they are never copied.
const ReservedTagPrefix = "aws:"

func containsString(strSlice []string, searchStr string) bool {
	for _, value := range strSlice {
		if value == searchStr {
			return true
		}
	}
	return false
}

func dedupeString(strSlice []string) []string {
	var returnSlice []string
	for _, value := range strSlice {
		if !containsString(returnSlice, value) {
			returnSlice = append(returnSlice, value)
		}
	}
	return returnSlice
}

// userTags converts a slice of EC2 tags into a map and drops every
// tag whose key starts with ReservedTagPrefix.
func userTags(tags []*ec2.Tag) map[string]string {
	m := make(map[string]string, len(tags))
	for _, tag := range tags {
		if tag.Key == nil {
			continue
		}
		key := aws.StringValue(tag.Key)
		if strings.HasPrefix(key, ReservedTagPrefix) {
			continue
		}
		m[key] = aws.StringValue(tag.Value)
	}
	return m
}

// ec2Tags converts a map of tags into EC2 tags sorted by key so that
// requests are deterministic.
func ec2Tags(tags map[string]string) (out []*ec2.Tag) {
	for _, key := range sortedKeys(tags) {
		out = append(out, &ec2.Tag{
			Key:   aws.String(key),
			Value: aws.String(tags[key]),
		})
	}
	return out
}

// ec2Filters converts a Filter into DescribeVolumes filters sorted by
// name.
func ec2Filters(filter Filter) (out []*ec2.Filter) {
	names := make([]string, 0, len(filter))
	for name := range filter {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, &ec2.Filter{
			Name:   aws.String(name),
			Values: aws.StringSlice(filter[name]),
		})
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// mergeTags returns a new map holding every tag of the given maps.
// Later maps win on key collisions.
func mergeTags(maps ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
