// Copyright 2015-2016 trivago GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package compiler

import (
	"io/ioutil"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// LoadDescription reads a graph description from a local path or an
// "s3://bucket/key" URI (SPEC_FULL.md §2), so a fleet of hosts can share
// one canonical description without each holding its own copy on disk.
func LoadDescription(path string) (*GraphSpec, error) {
	raw, err := readDescriptionBytes(path)
	if err != nil {
		return nil, errors.Wrapf(err, "compiler: reading graph description %q", path)
	}

	spec := &GraphSpec{}
	if err := yaml.Unmarshal(raw, spec); err != nil {
		return nil, errors.Wrapf(err, "compiler: parsing graph description %q", path)
	}
	return spec, nil
}

func readDescriptionBytes(path string) ([]byte, error) {
	if !strings.HasPrefix(path, "s3://") {
		return ioutil.ReadFile(path)
	}

	u, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")

	sess, err := session.NewSession(aws.NewConfig())
	if err != nil {
		return nil, err
	}
	client := s3.New(sess)
	out, err := client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return ioutil.ReadAll(out.Body)
}
